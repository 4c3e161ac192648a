package model

// Session は認証済みユーザーのセッション識別情報を表す。
// 主ストアには永続化せず、署名付きトークンとしてCookieに載るため、
// IDを持たずユーザーの識別に必要な情報のみを保持する。
type Session struct {
	UserID   string
	Username string
}
