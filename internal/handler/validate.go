package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate はリクエストボディの構造検証に使う共有バリデータ。
// 構造体のvalidateタグに基づいて検証する。
var validate = validator.New()

// validationMessage はフィールドとタグの組から利用者向けメッセージを導出する。
// スキーマ内部の表現をそのまま返さず、人間が読める一文に変換する。
func validationMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "Invalid email"
	case "Password":
		if fe.Tag() == "min" {
			return "Password must be at least 6 characters."
		}
		return "Password is required."
	case "Content":
		return "Content must not be empty."
	default:
		return "Invalid request"
	}
}

// validateStruct は構造体を検証し、全フィールドのエラーメッセージを
// 1つの文字列に集約して返す。検証に通った場合は空文字列を返す。
func validateStruct(s any) string {
	err := validate.Struct(s)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, validationMessage(fe))
	}
	return strings.Join(messages, " ")
}
