package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NewTemplate は `config --new` で生成する雛形を返す。
// 生成直後の状態でValidateを通過する値を設定する。
func NewTemplate(p Platform) *File {
	softDeletion := true
	return &File{
		LDAP: LDAPSection{
			Servers:          []string{"dc1", "dc2"},
			Domain:           "foo.bar",
			SSL:              false,
			TLS:              true,
			BindUser:         "vlan_user",
			BindPwd:          "secret",
			UserBaseDN:       "DC=foo,DC=bar",
			ComputerBaseDN:   "DC=foo,DC=bar",
			MacUserBaseDN:    "OU=mac-users,DC=foo,DC=bar",
			MaxComputerSync:  0,
			TimeComputerSync: "1m",
			VerifyAttrib:     []string{"memberof", "cn"},
			WriteAttrib:      []string{"extensionattribute1", "extensionattribute2"},
			Match:            "like",
			AddGroupType:     []string{GroupTypeUser, GroupTypeComputer},
			OtherGroup:       []string{"second_grp", "third_grp"},
		},
		VMAM: VMAMSection{
			MacFormat:     "none",
			SoftDeletion:  &softDeletion,
			FilterExclude: []string{"list1", "list2"},
			Log:           p.LogPath,
			UserMatchID:   map[string]int{"value1": 100, "value2": 101},
			VlanGroupID:   map[int]string{100: "group1", 101: "group2"},
			WinrmUser:     "admin",
			WinrmPwd:      "secret",
		},
	}
}

// WriteFile は設定をYAMLとしてpathへ書き込む。親ディレクトリは作成する。
// パスワードを含むため0600で作成する。
func WriteFile(f *File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
