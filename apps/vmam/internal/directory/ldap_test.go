package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/apperr"
)

// fakeConn はテスト用のLDAP接続。使わないメソッドは埋め込みのnilインターフェースに委ねる。
type fakeConn struct {
	ldap.Client

	mu        sync.Mutex
	bindErr   error
	searchErr error
	modifyErr error
	entries   map[string]*ldap.Entry // フィルタ → エントリ
	adds      []*ldap.AddRequest
	modifies  []*ldap.ModifyRequest
	dels      []*ldap.DelRequest
	bindUser  string
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{entries: make(map[string]*ldap.Entry)}
}

func (f *fakeConn) Bind(username, _ string) error {
	f.bindUser = username
	return f.bindErr
}

func (f *fakeConn) StartTLS(*tls.Config) error { return nil }
func (f *fakeConn) SetTimeout(time.Duration)  {}
func (f *fakeConn) IsClosing() bool            { return f.closed }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if e, ok := f.entries[req.Filter]; ok {
		return &ldap.SearchResult{Entries: []*ldap.Entry{e}}, nil
	}
	return &ldap.SearchResult{}, nil
}

func (f *fakeConn) Add(req *ldap.AddRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, req)
	return nil
}

func (f *fakeConn) Modify(req *ldap.ModifyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modifies = append(f.modifies, req)
	return f.modifyErr
}

func (f *fakeConn) Del(req *ldap.DelRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels = append(f.dels, req)
	return nil
}

func userFilter(key string) string {
	return fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", key)
}

func groupFilter(cn string) string {
	return fmt.Sprintf("(&(objectClass=group)(cn=%s))", cn)
}

func newTestFile(ssl bool, groupTypes ...string) *config.File {
	if len(groupTypes) == 0 {
		groupTypes = []string{config.GroupTypeUser}
	}
	return &config.File{LDAP: config.LDAPSection{
		Servers:        []string{"dc1.foo.bar", "dc2.foo.bar"},
		Domain:         "foo.bar",
		SSL:            ssl,
		TLS:            !ssl,
		BindUser:       "vlan_user",
		BindPwd:        "secret",
		UserBaseDN:     "DC=foo,DC=bar",
		ComputerBaseDN: "OU=computers,DC=foo,DC=bar",
		MacUserBaseDN:  "OU=mac,DC=foo,DC=bar",
		AddGroupType:   groupTypes,
	}}
}

// newTestLDAPClient はdialが順にconnsを返すLDAPClientを生成する。
func newTestLDAPClient(f *config.File, conns ...*fakeConn) (*LDAPClient, *int) {
	c := NewLDAPClient(f, &config.Config{})
	dials := 0
	c.dial = func(url string) (ldap.Client, error) {
		if dials >= len(conns) || conns[dials] == nil {
			dials++
			return nil, ldap.NewError(ldap.ErrorNetwork, errors.New("connection refused"))
		}
		conn := conns[dials]
		dials++
		return conn, nil
	}
	return c, &dials
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		server string
		ssl    bool
		want   string
	}{
		{"dc1.foo.bar", false, "ldap://dc1.foo.bar:389"},
		{"dc1.foo.bar", true, "ldaps://dc1.foo.bar:636"},
		{"dc1.foo.bar:3268", false, "ldap://dc1.foo.bar:3268"},
		{"ldaps://dc1.foo.bar:10636", false, "ldaps://dc1.foo.bar:10636"},
		{" 10.0.0.1 ", true, "ldaps://10.0.0.1:636"},
	}
	for _, tt := range tests {
		if got := ServerURL(tt.server, tt.ssl); got != tt.want {
			t.Errorf("ServerURL(%q, %v) = %q, want %q", tt.server, tt.ssl, got, tt.want)
		}
	}
}

func TestBindName(t *testing.T) {
	tests := []struct {
		user, domain, want string
	}{
		{"vlan_user", "foo.bar", "vlan_user@foo.bar"},
		{"vlan_user@foo.bar", "foo.bar", "vlan_user@foo.bar"},
		{"CN=vlan,DC=foo,DC=bar", "foo.bar", "CN=vlan,DC=foo,DC=bar"},
		{`FOO\vlan_user`, "foo.bar", `FOO\vlan_user`},
		{"vlan_user", "", "vlan_user"},
	}
	for _, tt := range tests {
		if got := BindName(tt.user, tt.domain); got != tt.want {
			t.Errorf("BindName(%q) = %q, want %q", tt.user, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.DirectoryErrorKind
	}{
		{"認証失敗", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("x")), apperr.DirectoryAuthFailed},
		{"権限不足", ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("x")), apperr.DirectoryAuthFailed},
		{"オブジェクトなし", ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("x")), apperr.DirectoryNotFound},
		{"既存", ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("x")), apperr.DirectoryConflict},
		{"ビジー", ldap.NewError(ldap.LDAPResultBusy, errors.New("x")), apperr.DirectoryConflict},
		{"時間制限", ldap.NewError(ldap.LDAPResultTimeLimitExceeded, errors.New("x")), apperr.DirectoryTimeout},
		{"期限切れ", context.DeadlineExceeded, apperr.DirectoryTimeout},
		{"ネットワーク", ldap.NewError(ldap.ErrorNetwork, errors.New("x")), apperr.DirectoryUnavailable},
		{"ネットワークタイムアウト", &net.OpError{Op: "dial", Err: timeoutErr{}}, apperr.DirectoryTimeout},
		{"サーバダウン", ldap.NewError(ldap.LDAPResultServerDown, errors.New("x")), apperr.DirectoryUnavailable},
		{"接続断", io.EOF, apperr.DirectoryUnavailable},
		{"制約違反", ldap.NewError(ldap.LDAPResultConstraintViolation, errors.New("x")), apperr.DirectoryRejected},
		{"オブジェクトクラス違反", ldap.NewError(ldap.LDAPResultObjectClassViolation, errors.New("x")), apperr.DirectoryRejected},
		{"属性なし", ldap.NewError(ldap.LDAPResultNoSuchAttribute, errors.New("x")), apperr.DirectoryRejected},
		{"実行拒否", ldap.NewError(ldap.LDAPResultUnwillingToPerform, errors.New("x")), apperr.DirectoryRejected},
		{"不明", errors.New("boom"), apperr.DirectoryUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify = %s, want %s", got, tt.want)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTranslateErrorKeepsDirectoryError(t *testing.T) {
	orig := apperr.NewDirectoryError(apperr.DirectoryNotFound, "group", "g", nil)
	if got := translateError(OpCreate, "k", orig); got != error(orig) {
		t.Errorf("DirectoryErrorは変換しないはず: %v", got)
	}
	if translateError(OpCreate, "k", nil) != nil {
		t.Error("nilはnilのまま")
	}
}

func TestIdentityFromEntry(t *testing.T) {
	e := ldap.NewEntry("CN=000018ff12dd,OU=mac,DC=foo,DC=bar", map[string][]string{
		"sAMAccountName":      {"000018ff12dd"},
		"userAccountControl":  {"66082"},
		"memberOf":            {"CN=vlan110-users,OU=groups,DC=foo,DC=bar", "CN=wifi\\, guests,DC=foo,DC=bar"},
		"extensionAttribute1": {"110"},
	})

	id := identityFromEntry("000018FF12DD", e)
	if id.Key != "000018ff12dd" {
		t.Errorf("Key = %q", id.Key)
	}
	if id.Enabled {
		t.Error("ACCOUNTDISABLEビットが立っているのにEnabled=true")
	}
	if len(id.Groups) != 2 || id.Groups[0] != "vlan110-users" || id.Groups[1] != "wifi, guests" {
		t.Errorf("Groups = %v", id.Groups)
	}
	if v := id.Attr("extensionattribute1"); len(v) != 1 || v[0] != "110" {
		t.Errorf("Attr = %v", v)
	}
}

func TestEncodePassword(t *testing.T) {
	got := []byte(encodePassword("ab"))
	want := []byte{'"', 0, 'a', 0, 'b', 0, '"', 0}
	if string(got) != string(want) {
		t.Errorf("encodePassword = %v, want %v", got, want)
	}
}

func TestLDAPClientFindByMAC(t *testing.T) {
	conn := newFakeConn()
	conn.entries[userFilter("000018ff12dd")] = ldap.NewEntry("CN=000018ff12dd,OU=mac,DC=foo,DC=bar",
		map[string][]string{
			"sAMAccountName":     {"000018ff12dd"},
			"userAccountControl": {"66080"},
			"memberOf":           {"CN=vlan110,DC=foo,DC=bar"},
		})
	conn.entries["(&(objectClass=computer)(cn=000018ff12dd))"] = ldap.NewEntry("CN=000018ff12dd,OU=computers,DC=foo,DC=bar", nil)

	c, dials := newTestLDAPClient(newTestFile(false, "user", "computer"), conn)
	id, err := c.FindByMAC(context.Background(), "000018ff12dd")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if id == nil || !id.Enabled || !id.InGroup("vlan110") {
		t.Fatalf("Identity = %+v", id)
	}
	if id.ComputerDN != "CN=000018ff12dd,OU=computers,DC=foo,DC=bar" {
		t.Errorf("ComputerDN = %q", id.ComputerDN)
	}
	if conn.bindUser != "vlan_user@foo.bar" {
		t.Errorf("bindUser = %q", conn.bindUser)
	}

	// 未登録はnil, nil。接続は再利用される
	id, err = c.FindByMAC(context.Background(), "aabbccddeeff")
	if err != nil || id != nil {
		t.Fatalf("未登録: %v %v", id, err)
	}
	if *dials != 1 {
		t.Errorf("dials = %d, want 1", *dials)
	}
}

func TestLDAPClientCreate(t *testing.T) {
	conn := newFakeConn()
	conn.entries[groupFilter("vlan110")] = ldap.NewEntry("CN=vlan110,DC=foo,DC=bar", nil)
	conn.entries[groupFilter("wifi")] = ldap.NewEntry("CN=wifi,DC=foo,DC=bar", nil)

	c, _ := newTestLDAPClient(newTestFile(true), conn)
	id := &Identity{Key: "000018ff12dd", Enabled: true, Groups: []string{"vlan110", "wifi"}}
	id.SetAttr("extensionAttribute1", "110")
	id.SetAttr("sAMAccountName", "evil")

	if err := c.Create(context.Background(), id); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(conn.adds) != 1 {
		t.Fatalf("adds = %d", len(conn.adds))
	}
	add := conn.adds[0]
	if add.DN != "CN=000018ff12dd,OU=mac,DC=foo,DC=bar" {
		t.Errorf("DN = %q", add.DN)
	}
	attrs := map[string][]string{}
	for _, a := range add.Attributes {
		attrs[strings.ToLower(a.Type)] = a.Vals
	}
	if got := attrs["samaccountname"]; len(got) != 1 || got[0] != "000018ff12dd" {
		t.Errorf("sAMAccountName = %v", got)
	}
	if got := attrs["userprincipalname"]; len(got) != 1 || got[0] != "000018ff12dd@foo.bar" {
		t.Errorf("userPrincipalName = %v", got)
	}
	if got := attrs["useraccountcontrol"]; len(got) != 1 || got[0] != "66048" {
		t.Errorf("userAccountControl = %v", got)
	}
	if _, ok := attrs["unicodepwd"]; !ok {
		t.Error("ssl時はunicodePwdを設定するはず")
	}
	if got := attrs["extensionattribute1"]; len(got) != 1 || got[0] != "110" {
		t.Errorf("extensionAttribute1 = %v", got)
	}
	if len(conn.modifies) != 2 {
		t.Fatalf("グループ変更 = %d, want 2", len(conn.modifies))
	}
	m := conn.modifies[0]
	if m.DN != "CN=vlan110,DC=foo,DC=bar" || m.Changes[0].Operation != ldap.AddAttribute ||
		m.Changes[0].Modification.Vals[0] != add.DN {
		t.Errorf("グループ変更が不正: %+v", m)
	}
}

func TestLDAPClientCreateWithoutSSL(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestLDAPClient(newTestFile(false), conn)

	if err := c.Create(context.Background(), &Identity{Key: "000018ff12dd"}); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	for _, a := range conn.adds[0].Attributes {
		switch strings.ToLower(a.Type) {
		case "unicodepwd":
			t.Error("平文接続でunicodePwdを送ってはならない")
		case "useraccountcontrol":
			// NORMAL | DONT_EXPIRE | PASSWD_NOTREQD | ACCOUNTDISABLE
			if a.Vals[0] != "66082" {
				t.Errorf("userAccountControl = %v", a.Vals)
			}
		}
	}
}

func TestLDAPClientCreateMissingGroup(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestLDAPClient(newTestFile(false), conn)

	err := c.Create(context.Background(), &Identity{Key: "000018ff12dd", Groups: []string{"nope"}})
	if !errors.Is(err, apperr.ErrDirectoryNotFound) {
		t.Fatalf("NotFoundが期待された: %v", err)
	}
}

func TestLDAPClientCreateAlreadyMember(t *testing.T) {
	conn := newFakeConn()
	conn.entries[groupFilter("vlan110")] = ldap.NewEntry("CN=vlan110,DC=foo,DC=bar", nil)
	conn.modifyErr = ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("member exists"))
	c, _ := newTestLDAPClient(newTestFile(false), conn)

	err := c.Create(context.Background(), &Identity{Key: "000018ff12dd", Groups: []string{"vlan110"}})
	if err != nil {
		t.Fatalf("所属済みは成功扱いのはず: %v", err)
	}
}

func TestLDAPClientSetEnabledAndDelete(t *testing.T) {
	conn := newFakeConn()
	dn := "CN=000018ff12dd,OU=mac,DC=foo,DC=bar"
	conn.entries[userFilter("000018ff12dd")] = ldap.NewEntry(dn, map[string][]string{
		"userAccountControl": {"66080"},
	})
	c, _ := newTestLDAPClient(newTestFile(false), conn)
	ctx := context.Background()

	if err := c.SetEnabled(ctx, "000018ff12dd", false); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	ch := conn.modifies[0].Changes[0]
	if ch.Operation != ldap.ReplaceAttribute || ch.Modification.Vals[0] != "66082" {
		t.Errorf("変更内容 = %+v", ch)
	}

	if err := c.Delete(ctx, "000018ff12dd"); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(conn.dels) != 1 || conn.dels[0].DN != dn {
		t.Errorf("dels = %+v", conn.dels)
	}

	if err := c.Delete(ctx, "aabbccddeeff"); !errors.Is(err, apperr.ErrDirectoryNotFound) {
		t.Errorf("NotFoundが期待された: %v", err)
	}
}

func TestLDAPClientModify(t *testing.T) {
	conn := newFakeConn()
	dn := "CN=000018ff12dd,OU=mac,DC=foo,DC=bar"
	conn.entries[userFilter("000018ff12dd")] = ldap.NewEntry(dn, map[string][]string{
		"userAccountControl": {"66082"},
	})
	conn.entries[groupFilter("vlan110")] = ldap.NewEntry("CN=vlan110,DC=foo,DC=bar", nil)
	conn.entries[groupFilter("vlan111")] = ldap.NewEntry("CN=vlan111,DC=foo,DC=bar", nil)
	c, _ := newTestLDAPClient(newTestFile(false), conn)

	enable := true
	err := c.Modify(context.Background(), "000018ff12dd", &AttributeDiff{
		Replace:      map[string][]string{"extensionAttribute1": {"111"}},
		RemoveGroups: []string{"vlan110"},
		AddGroups:    []string{"vlan111"},
		Enable:       &enable,
	})
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(conn.modifies) != 3 {
		t.Fatalf("modifies = %d, want 3", len(conn.modifies))
	}
	if len(conn.modifies[0].Changes) != 2 {
		t.Errorf("属性変更 = %+v", conn.modifies[0].Changes)
	}
	if conn.modifies[1].Changes[0].Operation != ldap.DeleteAttribute {
		t.Error("グループ削除が先に行われるはず")
	}
	if conn.modifies[2].Changes[0].Operation != ldap.AddAttribute {
		t.Error("グループ追加が後に行われるはず")
	}
}

func TestLDAPClientReconnectsOnStaleConnection(t *testing.T) {
	stale := newFakeConn()
	stale.searchErr = ldap.NewError(ldap.ErrorNetwork, errors.New("connection reset"))
	fresh := newFakeConn()

	c, dials := newTestLDAPClient(newTestFile(false), stale, fresh)
	id, err := c.FindByMAC(context.Background(), "000018ff12dd")
	if err != nil || id != nil {
		t.Fatalf("再接続後の検索: %v %v", id, err)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}
	if !stale.closed {
		t.Error("失効した接続が閉じられていない")
	}
}

func TestLDAPClientFailover(t *testing.T) {
	conn := newFakeConn()
	// 1台目は接続不可
	c, dials := newTestLDAPClient(newTestFile(false), nil, conn)
	if _, err := c.FindByMAC(context.Background(), "000018ff12dd"); err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if *dials != 2 {
		t.Errorf("dials = %d, want 2", *dials)
	}
}

func TestLDAPClientAuthFailed(t *testing.T) {
	first := newFakeConn()
	first.bindErr = ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password"))

	c, dials := newTestLDAPClient(newTestFile(false), first, newFakeConn())
	_, err := c.FindByMAC(context.Background(), "000018ff12dd")
	if !errors.Is(err, apperr.ErrDirectoryAuthFailed) {
		t.Fatalf("AuthFailedが期待された: %v", err)
	}
	if *dials != 1 {
		t.Errorf("認証失敗で別サーバーを試してはならない: dials = %d", *dials)
	}
}

func TestLDAPClientPing(t *testing.T) {
	c, _ := newTestLDAPClient(newTestFile(false), nil, newFakeConn())
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("2台目に接続できるはず: %v", err)
	}

	c, _ = newTestLDAPClient(newTestFile(false))
	if err := c.Ping(context.Background()); !errors.Is(err, apperr.ErrDirectoryUnavailable) {
		t.Fatalf("Unavailableが期待された: %v", err)
	}
}
