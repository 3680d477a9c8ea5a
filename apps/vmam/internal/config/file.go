package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oyaguma3/vmam/apps/vmam/internal/mac"
	"github.com/oyaguma3/vmam/apps/vmam/internal/policy"
	"github.com/oyaguma3/vmam/pkg/apperr"
)

// トップレベルキー
const (
	SectionLDAP = "LDAP"
	SectionVMAM = "VMAM"
)

// add_group_typeの有効値
const (
	GroupTypeUser     = "user"
	GroupTypeComputer = "computer"
)

// File は設定ファイル（vmam.yml）全体を表す。
type File struct {
	LDAP LDAPSection `yaml:"LDAP"`
	VMAM VMAMSection `yaml:"VMAM"`
}

// LDAPSection はLDAPセクション。
type LDAPSection struct {
	Servers          []string `yaml:"servers"`
	Domain           string   `yaml:"domain"`
	SSL              bool     `yaml:"ssl"`
	TLS              bool     `yaml:"tls"`
	BindUser         string   `yaml:"bind_user"`
	BindPwd          string   `yaml:"bind_pwd"`
	UserBaseDN       string   `yaml:"user_base_dn"`
	ComputerBaseDN   string   `yaml:"computer_base_dn"`
	MacUserBaseDN    string   `yaml:"mac_user_base_dn"`
	MaxComputerSync  int      `yaml:"max_computer_sync"`
	TimeComputerSync string   `yaml:"time_computer_sync"`
	VerifyAttrib     []string `yaml:"verify_attrib"`
	WriteAttrib      []string `yaml:"write_attrib"`
	Match            string   `yaml:"match"`
	AddGroupType     []string `yaml:"add_group_type"`
	OtherGroup       []string `yaml:"other_group"`
}

// VMAMSection はVMAMセクション。
type VMAMSection struct {
	MacFormat     string         `yaml:"mac_format"`
	SoftDeletion  *bool          `yaml:"soft_deletion"`
	FilterExclude []string       `yaml:"filter_exclude"`
	Log           string         `yaml:"log"`
	UserMatchID   map[string]int `yaml:"user_match_id"`
	VlanGroupID   map[int]string `yaml:"vlan_group_id"`
	WinrmUser     string         `yaml:"winrm_user"`
	WinrmPwd      string         `yaml:"winrm_pwd"`
}

// LoadFile は設定ファイルを読み込み、検証済みのFileを返す。
// 違反はすべて*apperr.ConfigErrorとして返す。
func LoadFile(path string) (*File, error) {
	// 1. 存在確認
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, &apperr.ConfigError{
			Reason: apperr.ConfigFileNotFound,
			Detail: path,
			Cause:  err,
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperr.ConfigError{Reason: apperr.ConfigParse, Detail: path, Cause: err}
	}
	return Parse(data)
}

// Parse はYAMLバイト列を解析し、検証済みのFileを返す。
func Parse(data []byte) (*File, error) {
	// 2. トップレベルキー確認
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &apperr.ConfigError{Reason: apperr.ConfigParse, Cause: err}
	}
	if err := checkSections(&root); err != nil {
		return nil, err
	}

	// 3. 構造体へデコード
	var f File
	if err := root.Decode(&f); err != nil {
		return nil, &apperr.ConfigError{Reason: apperr.ConfigParse, Cause: err}
	}

	// 4. フィールド検証
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// checkSections はトップレベルがLDAPとVMAMのちょうど2キーであることを確認する
func checkSections(root *yaml.Node) error {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return apperr.NewConfigError(apperr.ConfigMissingSection, SectionLDAP, "configuration must be a mapping")
	}
	mapping := root.Content[0]

	keys := make(map[string]bool, len(mapping.Content)/2)
	var order []string
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i].Value
		keys[k] = true
		order = append(order, k)
	}

	for _, section := range []string{SectionLDAP, SectionVMAM} {
		if !keys[section] {
			return apperr.NewConfigError(apperr.ConfigMissingSection, section,
				fmt.Sprintf("key %q is required", section))
		}
	}
	if len(order) != 2 {
		var extra []string
		for _, k := range order {
			if k != SectionLDAP && k != SectionVMAM {
				extra = append(extra, k)
			}
		}
		return apperr.NewConfigError(apperr.ConfigUnexpectedSection, strings.Join(extra, ","),
			`the principal keys of configuration file are two: "LDAP" and "VMAM"`)
	}
	return nil
}

// Validate は必須フィールドと値の整合性を検証する。
func (f *File) Validate() error {
	l := &f.LDAP
	v := &f.VMAM

	required := []struct {
		field string
		ok    bool
	}{
		{"LDAP.servers", len(nonEmpty(l.Servers)) > 0},
		{"LDAP.domain", notBlank(l.Domain)},
		{"LDAP.bind_user", notBlank(l.BindUser)},
		{"LDAP.bind_pwd", l.BindPwd != ""},
		{"LDAP.user_base_dn", notBlank(l.UserBaseDN)},
		{"LDAP.computer_base_dn", notBlank(l.ComputerBaseDN)},
		{"LDAP.mac_user_base_dn", notBlank(l.MacUserBaseDN)},
		{"LDAP.verify_attrib", len(nonEmpty(l.VerifyAttrib)) > 0},
		{"LDAP.match", notBlank(l.Match)},
		{"LDAP.add_group_type", len(nonEmpty(l.AddGroupType)) > 0},
		{"VMAM.mac_format", notBlank(v.MacFormat)},
		{"VMAM.soft_deletion", v.SoftDeletion != nil},
		{"VMAM.user_match_id", len(v.UserMatchID) > 0},
		{"VMAM.vlan_group_id", len(v.VlanGroupID) > 0},
	}
	for _, r := range required {
		if !r.ok {
			return apperr.NewConfigError(apperr.ConfigMissingField, r.field, "required field")
		}
	}

	// user_match_id → vlan_group_id 参照整合性（VLAN範囲も同時に検証）
	if _, err := f.PolicyTable(); err != nil {
		return err
	}

	if !notBlank(v.WinrmUser) {
		return apperr.NewConfigError(apperr.ConfigMissingField, "VMAM.winrm_user", "required field")
	}
	if v.WinrmPwd == "" {
		return apperr.NewConfigError(apperr.ConfigMissingField, "VMAM.winrm_pwd", "required field")
	}

	// 値の検証
	if _, err := policy.ParseMatchRule(l.Match); err != nil {
		return invalidValue("LDAP.match", err)
	}
	if _, err := mac.ParseStyle(v.MacFormat); err != nil {
		return invalidValue("VMAM.mac_format", err)
	}
	for _, t := range l.AddGroupType {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case GroupTypeUser, GroupTypeComputer:
		default:
			return apperr.NewConfigError(apperr.ConfigInvalidValue, "LDAP.add_group_type",
				fmt.Sprintf("unknown group type %q (user|computer)", t))
		}
	}
	if l.MaxComputerSync < 0 {
		return apperr.NewConfigError(apperr.ConfigInvalidValue, "LDAP.max_computer_sync", "must not be negative")
	}
	if _, err := f.SyncInterval(); err != nil {
		return invalidValue("LDAP.time_computer_sync", err)
	}
	if l.SSL && l.TLS {
		return apperr.NewConfigError(apperr.ConfigInvalidValue, "LDAP.tls", "ssl and tls are mutually exclusive")
	}
	if _, err := f.ExclusionFilter(); err != nil {
		return invalidValue("VMAM.filter_exclude", err)
	}
	return nil
}

// SyncInterval はtime_computer_syncを解析する。未設定時は1分。
func (f *File) SyncInterval() (time.Duration, error) {
	s := strings.TrimSpace(f.LDAP.TimeComputerSync)
	if s == "" {
		return DefaultSyncInterval, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return d, nil
}

// MatchRule はLDAP.matchを返す。
func (f *File) MatchRule() policy.MatchRule {
	r, _ := policy.ParseMatchRule(f.LDAP.Match)
	return r
}

// MacStyle はVMAM.mac_formatを返す。
func (f *File) MacStyle() mac.Style {
	s, err := mac.ParseStyle(f.VMAM.MacFormat)
	if err != nil {
		return mac.StyleNone
	}
	return s
}

// SoftDeletion はVMAM.soft_deletionに基づくポリシーを返す。
func (f *File) SoftDeletion() policy.SoftDeletion {
	return policy.NewSoftDeletion(f.VMAM.SoftDeletion != nil && *f.VMAM.SoftDeletion)
}

// PolicyTable はVLAN対応表を生成する。
func (f *File) PolicyTable() (*policy.Table, error) {
	rule, err := policy.ParseMatchRule(f.LDAP.Match)
	if err != nil {
		rule = policy.MatchExact
	}
	return policy.Load(f.VMAM.VlanGroupID, f.VMAM.UserMatchID, rule)
}

// ExclusionFilter はfilter_excludeから除外フィルタを生成する。
func (f *File) ExclusionFilter() (*policy.ExclusionFilter, error) {
	return policy.NewExclusionFilter(f.VMAM.FilterExclude)
}

// HasGroupType はadd_group_typeに指定種別が含まれるかを返す。
func (f *File) HasGroupType(t string) bool {
	for _, g := range f.LDAP.AddGroupType {
		if strings.EqualFold(strings.TrimSpace(g), t) {
			return true
		}
	}
	return false
}

func invalidValue(field string, err error) error {
	return &apperr.ConfigError{
		Reason: apperr.ConfigInvalidValue,
		Field:  field,
		Detail: err.Error(),
	}
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if notBlank(v) {
			out = append(out, v)
		}
	}
	return out
}
