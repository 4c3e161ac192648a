package handler

import (
	"html/template"
	"log/slog"
	"net/http"
)

// pageTemplate はサーバーレンダリングするページシェルの共通テンプレート。
// フロントエンドのアセットはこのシェルの上に読み込まれる。
var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | ByteChat</title>
<link rel="stylesheet" href="/static/app.css">
</head>
<body>
<div id="app" data-page="{{.Page}}"></div>
<script src="/static/app.js"></script>
</body>
</html>
`))

// pageData はページシェルのテンプレートデータ。
type pageData struct {
	Title string
	Page  string
}

// PageHandler はサーバーレンダリングされるページシェルのハンドラー。
type PageHandler struct{}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Home はフィードページのシェルを返す。
// GET /home*
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, pageData{Title: "Home", Page: "home"})
}

// Profile はプロフィールページのシェルを返す。
// GET /profile*
func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	renderPage(w, pageData{Title: "Profile", Page: "profile"})
}

// Login はログインページのシェルを返す。
// GET /login
func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	renderPage(w, pageData{Title: "Login", Page: "login"})
}

// Signup はユーザー登録ページのシェルを返す。
// GET /signup
func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	renderPage(w, pageData{Title: "Sign up", Page: "signup"})
}

func renderPage(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render page", slog.String("page", data.Page), slog.String("error", err.Error()))
	}
}
