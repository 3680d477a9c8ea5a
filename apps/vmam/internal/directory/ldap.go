package directory

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/go-ldap/ldap/v3"

	"github.com/oyaguma3/vmam/apps/vmam/internal/config"
	"github.com/oyaguma3/vmam/pkg/apperr"
)

// userAccountControlのフラグ
const (
	uacAccountDisable     = 0x0002
	uacPasswdNotRequired  = 0x0020
	uacNormalAccount      = 0x0200
	uacDontExpirePassword = 0x10000
)

// 作成・更新時に呼び出し側から上書きさせない属性
var reservedAttributes = map[string]bool{
	"objectclass":        true,
	"cn":                 true,
	"samaccountname":     true,
	"userprincipalname":  true,
	"memberof":           true,
	"useraccountcontrol": true,
	"distinguishedname":  true,
	"unicodepwd":         true,
}

// dialFunc はLDAPサーバーへ接続する。テストで差し替える。
type dialFunc func(url string) (ldap.Client, error)

// LDAPClient はActive Directory（LDAP）上のMACユーザーを操作するClient実装。
// 接続は全ワーカーで共有し、切断を検知した場合は1回だけ再接続して再試行する。
type LDAPClient struct {
	urls           []string
	bindUser       string
	bindPwd        string
	domain         string
	ssl            bool
	startTLS       bool
	tlsConfig      *tls.Config
	userBaseDN     string
	computerBaseDN string
	macUserBaseDN  string
	addComputer    bool
	opTimeout      time.Duration
	probeTimeout   time.Duration
	dial           dialFunc

	mu   sync.Mutex
	conn ldap.Client
}

// NewLDAPClient は設定ファイルの内容からLDAPClientを生成する。接続は初回操作時に行う。
func NewLDAPClient(f *config.File, cfg *config.Config) *LDAPClient {
	l := &f.LDAP

	c := &LDAPClient{
		bindUser:       BindName(l.BindUser, l.Domain),
		bindPwd:        l.BindPwd,
		domain:         l.Domain,
		ssl:            l.SSL,
		startTLS:       l.TLS,
		userBaseDN:     l.UserBaseDN,
		computerBaseDN: l.ComputerBaseDN,
		macUserBaseDN:  l.MacUserBaseDN,
		addComputer:    f.HasGroupType(config.GroupTypeComputer),
		opTimeout:      config.LDAPOpTimeout,
		probeTimeout:   config.LDAPProbeTimeout,
	}
	for _, s := range l.Servers {
		if strings.TrimSpace(s) != "" {
			c.urls = append(c.urls, ServerURL(s, l.SSL))
		}
	}

	c.tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg != nil && cfg.LDAPInsecureSkipVerify {
		c.tlsConfig.InsecureSkipVerify = true
	}

	c.dial = func(url string) (ldap.Client, error) {
		return ldap.DialURL(url,
			ldap.DialWithDialer(&net.Dialer{Timeout: config.LDAPDialTimeout}),
			ldap.DialWithTLSConfig(c.tlsConfig.Clone()),
		)
	}
	return c
}

// ServerURL はサーバー名をLDAP URLに変換する。URL形式の場合はそのまま返す。
func ServerURL(server string, ssl bool) string {
	server = strings.TrimSpace(server)
	if strings.Contains(server, "://") {
		return server
	}
	scheme, port := "ldap", config.LDAPPort
	if ssl {
		scheme, port = "ldaps", config.LDAPSPort
	}
	if _, _, err := net.SplitHostPort(server); err == nil {
		return scheme + "://" + server
	}
	return scheme + "://" + net.JoinHostPort(server, strconv.Itoa(port))
}

// BindName はバインドユーザーをUPN形式に補完する。DNまたはUPNの場合はそのまま返す。
func BindName(user, domain string) string {
	if strings.ContainsAny(user, `@=\`) || domain == "" {
		return user
	}
	return user + "@" + domain
}

// Close は共有接続を閉じる。
func (c *LDAPClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// FindByMAC はmac_user_base_dn配下からsAMAccountNameでIDを検索する。
func (c *LDAPClient) FindByMAC(ctx context.Context, key string) (*Identity, error) {
	var identity *Identity
	err := c.do(ctx, OpFind, key, func(conn ldap.Client) error {
		entry, err := c.findUser(conn, key)
		if err != nil || entry == nil {
			return err
		}
		identity = identityFromEntry(key, entry)
		if c.addComputer {
			dn, err := c.findComputer(conn, key)
			if err != nil {
				return err
			}
			identity.ComputerDN = dn
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// Create はMACユーザーを作成し、グループへ追加する。
func (c *LDAPClient) Create(ctx context.Context, identity *Identity) error {
	key := identity.Key
	dn := "CN=" + ldap.EscapeDN(key) + "," + c.macUserBaseDN

	return c.do(ctx, OpCreate, key, func(conn ldap.Client) error {
		req := ldap.NewAddRequest(dn, nil)
		req.Attribute("objectClass", []string{"top", "person", "organizationalPerson", "user"})
		req.Attribute("cn", []string{key})
		req.Attribute("sAMAccountName", []string{key})
		req.Attribute("userPrincipalName", []string{key + "@" + c.domain})
		for name, values := range identity.Attributes {
			if reservedAttributes[strings.ToLower(name)] || len(values) == 0 {
				continue
			}
			req.Attribute(name, values)
		}

		uac := uacNormalAccount | uacDontExpirePassword
		if c.ssl {
			// MAB認証ではMACアドレスをパスワードとして使う。unicodePwdはLDAPS必須
			req.Attribute("unicodePwd", []string{encodePassword(key)})
		} else {
			uac |= uacPasswdNotRequired
		}
		if !identity.Enabled {
			uac |= uacAccountDisable
		}
		req.Attribute("userAccountControl", []string{strconv.Itoa(uac)})

		if err := conn.Add(req); err != nil {
			return err
		}
		identity.DN = dn

		members := []string{dn}
		if c.addComputer {
			computerDN, err := c.findComputer(conn, key)
			if err != nil {
				return err
			}
			if computerDN != "" {
				identity.ComputerDN = computerDN
				members = append(members, computerDN)
			}
		}
		for _, g := range identity.Groups {
			if err := c.changeMembership(conn, g, members, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// Modify は属性・有効フラグ・グループ所属を変更する。
func (c *LDAPClient) Modify(ctx context.Context, key string, diff *AttributeDiff) error {
	if diff.IsEmpty() {
		return nil
	}
	return c.do(ctx, OpModify, key, func(conn ldap.Client) error {
		entry, err := c.findUser(conn, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpModify, key, nil)
		}

		req := ldap.NewModifyRequest(entry.DN, nil)
		for name, values := range diff.Replace {
			if reservedAttributes[strings.ToLower(name)] {
				continue
			}
			req.Replace(name, values)
		}
		if diff.Enable != nil {
			req.Replace("userAccountControl", []string{strconv.Itoa(withEnabled(entry, *diff.Enable))})
		}
		if len(req.Changes) > 0 {
			if err := conn.Modify(req); err != nil {
				return err
			}
		}

		members := []string{entry.DN}
		if c.addComputer {
			computerDN, err := c.findComputer(conn, key)
			if err != nil {
				return err
			}
			if computerDN != "" {
				members = append(members, computerDN)
			}
		}
		for _, g := range diff.RemoveGroups {
			if err := c.changeMembership(conn, g, members, false); err != nil {
				return err
			}
		}
		for _, g := range diff.AddGroups {
			if err := c.changeMembership(conn, g, members, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetEnabled はuserAccountControlのACCOUNTDISABLEビットを切り替える。
func (c *LDAPClient) SetEnabled(ctx context.Context, key string, enabled bool) error {
	return c.do(ctx, OpSetEnabled, key, func(conn ldap.Client) error {
		entry, err := c.findUser(conn, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpSetEnabled, key, nil)
		}
		req := ldap.NewModifyRequest(entry.DN, nil)
		req.Replace("userAccountControl", []string{strconv.Itoa(withEnabled(entry, enabled))})
		return conn.Modify(req)
	})
}

// Delete はMACユーザーを削除する。グループ所属はディレクトリ側で解除される。
func (c *LDAPClient) Delete(ctx context.Context, key string) error {
	return c.do(ctx, OpDelete, key, func(conn ldap.Client) error {
		entry, err := c.findUser(conn, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return apperr.NewDirectoryError(apperr.DirectoryNotFound, OpDelete, key, nil)
		}
		return conn.Del(ldap.NewDelRequest(entry.DN, nil))
	})
}

// Ping はいずれかのサーバーへ接続できるかを確認する。バインドは行わない。
func (c *LDAPClient) Ping(ctx context.Context) error {
	var lastErr error
	for _, url := range c.urls {
		if err := ctx.Err(); err != nil {
			return apperr.NewDirectoryError(apperr.DirectoryTimeout, OpPing, "", err)
		}
		conn, err := c.dialProbe(url)
		if err != nil {
			slog.Debug("directory probe failed",
				"event_id", "DIR_PROBE_ERR",
				"server", url,
				"error", err,
			)
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no directory servers configured")
	}
	return apperr.NewDirectoryError(apperr.DirectoryUnavailable, OpPing, "", lastErr)
}

func (c *LDAPClient) dialProbe(url string) (ldap.Client, error) {
	if c.dial == nil {
		return nil, fmt.Errorf("dialer not configured")
	}
	type result struct {
		conn ldap.Client
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := c.dial(url)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-time.After(c.probeTimeout):
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("dial %s: timeout after %s", url, c.probeTimeout)
	}
}

// do は共有接続上でfnを実行する。切断系のエラーでは再接続して1回だけ再試行する。
func (c *LDAPClient) do(ctx context.Context, op, key string, fn func(ldap.Client) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return translateError(op, key, err)
		}
		conn, err := c.session()
		if err != nil {
			return translateError(op, key, err)
		}
		err = fn(conn)
		if err == nil {
			return nil
		}
		if attempt == 0 && isStale(conn, err) {
			slog.Warn("directory connection lost, reconnecting",
				"event_id", "DIR_RECONNECT",
				"op", op,
				"error", err,
			)
			c.reset(conn)
			continue
		}
		return translateError(op, key, err)
	}
}

// session は共有接続を返す。未接続の場合はサーバーを順に試して接続・バインドする。
func (c *LDAPClient) session() (ldap.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosing() {
		return c.conn, nil
	}

	var lastErr error
	for _, url := range c.urls {
		conn, err := c.dial(url)
		if err != nil {
			lastErr = err
			continue
		}
		if c.startTLS {
			if err := conn.StartTLS(c.tlsConfig.Clone()); err != nil {
				conn.Close()
				lastErr = err
				continue
			}
		}
		conn.SetTimeout(c.opTimeout)
		if err := conn.Bind(c.bindUser, c.bindPwd); err != nil {
			conn.Close()
			// 認証失敗はサーバーを変えても結果が同じ
			if ldap.IsErrorAnyOf(err, ldap.LDAPResultInvalidCredentials, ldap.LDAPResultInsufficientAccessRights) {
				return nil, err
			}
			lastErr = err
			continue
		}
		slog.Debug("directory connected", "event_id", "DIR_CONNECT", "server", url)
		c.conn = conn
		return conn, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no directory servers configured")
	}
	return nil, lastErr
}

// reset は失効した接続を破棄する。他のワーカーが既に張り替えていれば何もしない。
func (c *LDAPClient) reset(stale ldap.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == stale {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *LDAPClient) findUser(conn ldap.Client, key string) (*ldap.Entry, error) {
	filter := fmt.Sprintf("(&(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(key))
	return searchOne(conn, c.macUserBaseDN, filter, []string{"*", "memberOf"})
}

func (c *LDAPClient) findComputer(conn ldap.Client, key string) (string, error) {
	filter := fmt.Sprintf("(&(objectClass=computer)(cn=%s))", ldap.EscapeFilter(key))
	entry, err := searchOne(conn, c.computerBaseDN, filter, []string{"dn"})
	if err != nil || entry == nil {
		return "", err
	}
	return entry.DN, nil
}

// changeMembership はグループのmember属性を追加・削除する。既に反映済みの場合は成功扱い。
func (c *LDAPClient) changeMembership(conn ldap.Client, group string, members []string, add bool) error {
	filter := fmt.Sprintf("(&(objectClass=group)(cn=%s))", ldap.EscapeFilter(group))
	entry, err := searchOne(conn, c.userBaseDN, filter, []string{"dn"})
	if err != nil {
		return err
	}
	if entry == nil {
		return apperr.NewDirectoryError(apperr.DirectoryNotFound, "group", group,
			fmt.Errorf("group %q not found under %s", group, c.userBaseDN))
	}

	for _, m := range members {
		req := ldap.NewModifyRequest(entry.DN, nil)
		if add {
			req.Add("member", []string{m})
		} else {
			req.Delete("member", []string{m})
		}
		err := conn.Modify(req)
		switch {
		case err == nil:
		case add && ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists),
			add && ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists):
		case !add && ldap.IsErrorAnyOf(err, ldap.LDAPResultNoSuchAttribute, ldap.LDAPResultUnwillingToPerform):
		default:
			return err
		}
	}
	return nil
}

// searchOne はbaseDN配下を検索し、最初のエントリを返す。該当なしは(nil, nil)。
func searchOne(conn ldap.Client, baseDN, filter string, attrs []string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		filter,
		attrs,
		nil,
	)
	sr, err := conn.Search(req)
	if err != nil {
		// サイズ制限超過でも取得済みエントリは使う
		if !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) || sr == nil {
			return nil, err
		}
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}
	return sr.Entries[0], nil
}

// identityFromEntry はLDAPエントリをIdentityに変換する。
func identityFromEntry(key string, e *ldap.Entry) *Identity {
	identity := &Identity{
		Key:        key,
		DN:         e.DN,
		Enabled:    true,
		Attributes: make(map[string][]string, len(e.Attributes)),
	}
	for _, a := range e.Attributes {
		identity.Attributes[strings.ToLower(a.Name)] = a.Values
	}
	if v := e.GetAttributeValue("sAMAccountName"); v != "" {
		identity.Key = v
	}
	if uac, err := strconv.Atoi(e.GetAttributeValue("userAccountControl")); err == nil {
		identity.Enabled = uac&uacAccountDisable == 0
	}
	for _, dn := range e.GetAttributeValues("memberOf") {
		identity.Groups = append(identity.Groups, groupCN(dn))
	}
	return identity
}

// groupCN はグループDNの先頭RDNの値を返す。解析できない場合はDNをそのまま返す。
func groupCN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return dn
	}
	return parsed.RDNs[0].Attributes[0].Value
}

func withEnabled(e *ldap.Entry, enabled bool) int {
	uac, err := strconv.Atoi(e.GetAttributeValue("userAccountControl"))
	if err != nil {
		uac = uacNormalAccount | uacDontExpirePassword
	}
	if enabled {
		return uac &^ uacAccountDisable
	}
	return uac | uacAccountDisable
}

// encodePassword はunicodePwd形式（引用符付きUTF-16LE）に変換する。
func encodePassword(pwd string) string {
	units := utf16.Encode([]rune(`"` + pwd + `"`))
	b := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	return string(b)
}
