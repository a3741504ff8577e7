package review

import (
	"testing"

	"github.com/jessiesmp/intake/internal/app/domain/role"
)

func TestParseToken(t *testing.T) {
	cases := []struct {
		data string
		want Token
	}{
		{"approve_app_1700000000000_ab12", Token{Kind: KindApprove, ApplicationID: "app_1700000000000_ab12"}},
		{"reject_app_1700000000000_ab12", Token{Kind: KindReject, ApplicationID: "app_1700000000000_ab12"}},
		{"role_admin_app_1700000000000_ab12", Token{Kind: KindAssignRole, Role: role.Admin, ApplicationID: "app_1700000000000_ab12"}},
		{"role_owner_app_1", Token{Kind: KindAssignRole, Role: role.Owner, ApplicationID: "app_1"}},
		{"already_approved", Token{Kind: KindDecided}},
		{"already_rejected", Token{Kind: KindDecided}},
	}
	for _, tc := range cases {
		t.Run(tc.data, func(t *testing.T) {
			got, ok := ParseToken(tc.data)
			if !ok {
				t.Fatalf("expected %q to parse", tc.data)
			}
			if got != tc.want {
				t.Fatalf("parse %q = %+v, want %+v", tc.data, got, tc.want)
			}
		})
	}
}

func TestParseTokenFailsClosed(t *testing.T) {
	for _, data := range []string{
		"",
		"approve",
		"approve_",
		"delete_app_1",
		"role_app_1",
		"role_superuser_app_1",
		"role_admin_",
		"garbage data",
	} {
		if _, ok := ParseToken(data); ok {
			t.Fatalf("expected %q to be rejected", data)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := []Token{
		{Kind: KindApprove, ApplicationID: "app_1700000000000_ab12"},
		{Kind: KindReject, ApplicationID: "app_1700000000000_ab12"},
		{Kind: KindAssignRole, Role: role.Curator, ApplicationID: "app_1700000000000_ab12"},
	}
	for _, tok := range tokens {
		got, ok := ParseToken(tok.String())
		if !ok || got != tok {
			t.Fatalf("round trip %+v via %q gave %+v", tok, tok.String(), got)
		}
	}
}
