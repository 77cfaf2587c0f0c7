package session

import "encoding/gob"

// KeyMessage はフラッシュメッセージを保持するセッションキー。
const KeyMessage = "message"

// フラッシュのステータス
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message はセッションに保存するフラッシュメッセージ。
// PlainTextかStructuredのいずれか。
type Message interface {
	isMessage()
}

// PlainText は文字列だけのフラッシュメッセージ。
type PlainText string

// Structured はエラーまたは成功の文言を持つフラッシュメッセージ。
type Structured struct {
	Error   string
	Success string
}

func (PlainText) isMessage()  {}
func (Structured) isMessage() {}

func init() {
	// Cookieへのgobエンコードでinterface値として扱うため登録が必要
	gob.Register(PlainText(""))
	gob.Register(Structured{})
}

// Flash は読み出したフラッシュメッセージ。
type Flash struct {
	Status string `json:"status"`
	Text   string `json:"message"`
}

// SetMessage はフラッシュメッセージを書き込む。既存のメッセージは上書きされる。
// msgがnilの場合はメッセージを削除する。
func SetMessage(values Values, msg Message) {
	if msg == nil {
		values.Remove(KeyMessage)
		return
	}
	values.Set(KeyMessage, msg)
}

// ReadPlain は文字列のフラッシュメッセージを読み出して削除する。
// 文字列でない値やメッセージがない場合はTextが空になる。
func ReadPlain(values Values) Flash {
	v, _ := values.Get(KeyMessage)
	values.Remove(KeyMessage)

	flash := Flash{Status: StatusSuccess}
	switch m := v.(type) {
	case PlainText:
		flash.Text = string(m)
	case string:
		flash.Text = m
	}
	return flash
}

// ReadStructured は構造化フラッシュメッセージを読み出して削除する。
// Errorが空でなければerror、Successが空でなければsuccessとして返す。
func ReadStructured(values Values) Flash {
	v, _ := values.Get(KeyMessage)
	values.Remove(KeyMessage)

	var m Structured
	switch s := v.(type) {
	case Structured:
		m = s
	case *Structured:
		if s != nil {
			m = *s
		}
	}

	switch {
	case m.Error != "":
		return Flash{Status: StatusError, Text: m.Error}
	case m.Success != "":
		return Flash{Status: StatusSuccess, Text: m.Success}
	default:
		return Flash{Status: StatusSuccess}
	}
}
