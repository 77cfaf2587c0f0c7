// Package view はサーバー描画のHTMLテンプレートを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hitoshi/keyhole/internal/model"
	"github.com/hitoshi/keyhole/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面名
const (
	PageHome           = "home"
	PageSignIn         = "signin"
	PageAdminDashboard = "admin_dashboard"
	PageAdminSettings  = "admin_settings"
	PageAdminProfile   = "admin_profile"
)

var pages = []string{
	PageHome,
	PageSignIn,
	PageAdminDashboard,
	PageAdminSettings,
	PageAdminProfile,
}

// PageData はテンプレートに渡す値。
type PageData struct {
	AppName   string
	Title     string
	CSRFToken string
	SignedIn  bool
	User      *model.User

	// Flash はサインイン画面の構造化メッセージ。
	Flash session.Flash
	// Notice はホーム画面などのプレーンテキストメッセージ。
	Notice string
}

// Renderer は画面ごとに layout と組み合わせたテンプレートを保持する。
type Renderer struct {
	appName   string
	templates map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
func NewRenderer(appName string) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &Renderer{appName: appName, templates: templates}, nil
}

// Render は画面をレンダリングしてレスポンスに書き込む。
// 描画が完了してから書き込むため、途中で失敗しても不完全なHTMLは返さない。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page: %s", page)
	}
	if data.AppName == "" {
		data.AppName = r.appName
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
