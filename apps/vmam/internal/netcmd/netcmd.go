// Package netcmd は `config --get-cmd` で出力するRADIUSサーバーとスイッチの設定例を生成する。
package netcmd

import (
	"fmt"
	"io"
	"text/template"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/apps/vmam/internal/directory"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
)

// RadiusDir はFreeRADIUS設定ディレクトリの既定値
const RadiusDir = "/etc/freeradius/3.0"

var templates = template.Must(template.New("netcmd").Parse(ldapModuleTmpl))

func init() {
	template.Must(templates.New("post-auth").Parse(postAuthTmpl))
	template.Must(templates.New("switch").Parse(switchTmpl))
}

// Params はテンプレートに渡す値。
type Params struct {
	RadiusDir   string
	Servers     []string
	BindUser    string
	BindPwd     string
	BaseDN      string
	GroupBaseDN string
	StartTLS    bool
	Bindings    []policy.VlanBinding
}

// NewParams は検証済みの設定からParamsを組み立てる。
func NewParams(f *config.File) (*Params, error) {
	table, err := f.PolicyTable()
	if err != nil {
		return nil, err
	}
	l := f.LDAP
	p := &Params{
		RadiusDir:   RadiusDir,
		BindUser:    directory.BindName(l.BindUser, l.Domain),
		BindPwd:     l.BindPwd,
		BaseDN:      l.MacUserBaseDN,
		GroupBaseDN: l.UserBaseDN,
		StartTLS:    l.TLS && !l.SSL,
		Bindings:    table.Bindings(),
	}
	for _, s := range l.Servers {
		p.Servers = append(p.Servers, directory.ServerURL(s, l.SSL))
	}
	return p, nil
}

// Render はLDAPモジュール、post-authポリシー、スイッチテンプレートの順にwへ書き出す。
func Render(w io.Writer, f *config.File) error {
	p, err := NewParams(f)
	if err != nil {
		return err
	}
	for i, name := range []string{"netcmd", "post-auth", "switch"} {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := templates.ExecuteTemplate(w, name, p); err != nil {
			return fmt.Errorf("failed to render %s: %w", name, err)
		}
	}
	return nil
}
