package handler

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// NewStaticHandler は埋め込みフロントエンドアセットを配信するハンドラーを返す。
// バイナリ単体でページシェルとアセットを配信できるようにする。
func NewStaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// embedされたディレクトリ名が一致しない場合のみ起こるビルド時不整合
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
