package netcmd

// FreeRADIUS rlm_ldap モジュール
const ldapModuleTmpl = `# {{.RadiusDir}}/mods-available/ldap
ldap {
{{- range .Servers}}
	server = "{{.}}"
{{- end}}
	identity = "{{.BindUser}}"
	password = "{{.BindPwd}}"
	base_dn = "{{.BaseDN}}"

	user {
		base_dn = "${..base_dn}"
		filter = "(sAMAccountName=%{%{Stripped-User-Name}:-%{User-Name}})"
	}

	group {
		base_dn = "{{.GroupBaseDN}}"
		filter = "(objectClass=group)"
		membership_attribute = "memberOf"
	}
{{- if .StartTLS}}

	tls {
		start_tls = yes
		require_cert = "allow"
	}
{{- end}}
}
`

// post-authでLDAPグループからVLANを割り当てるポリシー
const postAuthTmpl = `# {{.RadiusDir}}/sites-available/default (post-auth)
post-auth {
{{- range $i, $b := .Bindings}}
	{{if $i}}elsif{{else}}if{{end}} (LDAP-Group == "{{$b.Group}}") {
		update reply {
			Tunnel-Type := VLAN
			Tunnel-Medium-Type := IEEE-802
			Tunnel-Private-Group-Id := "{{$b.VlanID}}"
		}
	}
{{- end}}
}
`

// スイッチのMAB/802.1Xポートテンプレート
const switchTmpl = `! switch / router
{{- range .Bindings}}
vlan {{.VlanID}}
 name {{.Group}}
{{- end}}
!
aaa new-model
aaa authentication dot1x default group radius
aaa authorization network default group radius
dot1x system-auth-control
radius server vmam
 address ipv4 <RADIUS_SERVER_IP> auth-port 1812 acct-port 1813
 key <RADIUS_SECRET>
!
interface <INTERFACE>
 switchport mode access
 authentication port-control auto
 authentication order mab dot1x
 authentication priority dot1x mab
 mab
 dot1x pae authenticator
 spanning-tree portfast
!
`
