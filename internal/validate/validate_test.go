package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegister(t *testing.T) {
	testTable := []struct {
		name   string
		form   Registration
		fields []string
	}{
		{
			name: "valid",
			form: Registration{Username: "alice", Email: "alice@example.com", Password: "pw", Confirmation: "pw"},
		},
		{
			name:   "everything missing",
			form:   Registration{},
			fields: []string{"username", "email", "password", "confirmation"},
		},
		{
			name:   "short username",
			form:   Registration{Username: "al", Email: "alice@example.com", Password: "pw", Confirmation: "pw"},
			fields: []string{"username"},
		},
		{
			name:   "long username",
			form:   Registration{Username: "abcdefghijklmnopqrstu", Email: "alice@example.com", Password: "pw", Confirmation: "pw"},
			fields: []string{"username"},
		},
		{
			name:   "bad email",
			form:   Registration{Username: "alice", Email: "not-an-email", Password: "pw", Confirmation: "pw"},
			fields: []string{"email"},
		},
		{
			name:   "display name email",
			form:   Registration{Username: "alice", Email: "Alice <alice@example.com>", Password: "pw", Confirmation: "pw"},
			fields: []string{"email"},
		},
		{
			name: "password too long",
			form: Registration{
				Username:     "alice",
				Email:        "alice@example.com",
				Password:     strings.Repeat("é", 40),
				Confirmation: strings.Repeat("é", 40),
			},
			fields: []string{"password"},
		},
		{
			name:   "mismatched confirmation",
			form:   Registration{Username: "alice", Email: "alice@example.com", Password: "pw", Confirmation: "wp"},
			fields: []string{"confirmation"},
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			errs := Register(&testCase.form)

			assert.Len(t, errs, len(testCase.fields))

			for _, field := range testCase.fields {
				assert.True(t, errs.Has(field), "expected an error for %s", field)
			}
		})
	}
}

func TestRegisterTrimsInput(t *testing.T) {
	form := Registration{Username: "  bob ", Email: " bob@example.com ", Password: "x", Confirmation: "x"}

	assert.True(t, Register(&form).Empty())
	assert.Equal(t, "bob", form.Username)
	assert.Equal(t, "bob@example.com", form.Email)
}

func TestLogIn(t *testing.T) {
	form := Login{Login: " ", Password: ""}
	errs := LogIn(&form)

	assert.Equal(t, []string{"Username or email is required"}, errs.For("login"))
	assert.Equal(t, []string{"Password is required"}, errs.For("password"))
	assert.True(t, LogIn(&Login{Login: "alice", Password: "pw"}).Empty())
}

func TestPost(t *testing.T) {
	message, errs := Post("  hello  ")
	assert.True(t, errs.Empty())
	assert.Equal(t, "hello", message)

	_, errs = Post("   ")
	assert.True(t, errs.Has("message"))
}

func TestParseTrade(t *testing.T) {
	testTable := []struct {
		name   string
		symbol string
		shares string
		trade  Trade
		fields []string
	}{
		{"valid", " abc ", "10", Trade{Symbol: "ABC", Shares: 10}, nil},
		{"dotted symbol", "brk.b", "1", Trade{Symbol: "BRK.B", Shares: 1}, nil},
		{"empty symbol", "", "10", Trade{Shares: 10}, []string{"symbol"}},
		{"bad symbol", "A B", "1", Trade{Symbol: "A B", Shares: 1}, []string{"symbol"}},
		{"zero shares", "ABC", "0", Trade{Symbol: "ABC"}, []string{"shares"}},
		{"negative shares", "ABC", "-4", Trade{Symbol: "ABC"}, []string{"shares"}},
		{"fractional shares", "ABC", "1.5", Trade{Symbol: "ABC"}, []string{"shares"}},
		{"text shares", "ABC", "ten", Trade{Symbol: "ABC"}, []string{"shares"}},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			trade, errs := ParseTrade(testCase.symbol, testCase.shares)

			assert.Equal(t, testCase.trade, trade)
			assert.Len(t, errs, len(testCase.fields))

			for _, field := range testCase.fields {
				assert.True(t, errs.Has(field))
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	assert.True(t, ResetPassword("new", "new").Empty())
	assert.True(t, ResetPassword("new", "old").Has("confirmation"))

	long := strings.Repeat("p", PasswordMaxLength+1)
	assert.Equal(t, []string{"Password must be at most 72 bytes"}, ResetPassword(long, long).For("password"))
	assert.True(t, ResetPassword(long[1:], long[1:]).Empty())

	_, errs := ResetRequest("nobody")
	assert.True(t, errs.Has("email"))
}

func TestErrorsString(t *testing.T) {
	var errs Errors
	errs.Add("a", "first")
	errs.Add("b", "second")

	assert.Equal(t, "a: first; b: second", errs.Error())
}
