// Package validate checks submitted forms.
//
// Each form has one function returning the field level problems found, so
// routes can show every message next to its input.
package validate

import (
	"net/mail"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
	EmailMaxLength    = 255
	// PasswordMaxLength is in bytes, the most bcrypt will hash.
	PasswordMaxLength = 72
	// MessageMaxLength keeps posts short.
	MessageMaxLength = 5000
)

// FieldError is a problem with one form field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered list of field errors.
type Errors []FieldError

// Add records a problem for a field.
func (errs *Errors) Add(field, message string) {
	*errs = append(*errs, FieldError{Field: field, Message: message})
}

// Empty returns true when there were no problems.
func (errs Errors) Empty() bool {
	return len(errs) == 0
}

// Has returns true if the field has at least one problem.
func (errs Errors) Has(field string) bool {
	for _, fieldError := range errs {
		if fieldError.Field == field {
			return true
		}
	}

	return false
}

// For returns the messages for one field.
func (errs Errors) For(field string) []string {
	var messages []string

	for _, fieldError := range errs {
		if fieldError.Field == field {
			messages = append(messages, fieldError.Message)
		}
	}

	return messages
}

func (errs Errors) Error() string {
	parts := make([]string, 0, len(errs))

	for _, fieldError := range errs {
		parts = append(parts, fieldError.Field+": "+fieldError.Message)
	}

	return strings.Join(parts, "; ")
}

// Registration is the sign up form.
type Registration struct {
	Username     string
	Email        string
	Password     string
	Confirmation string
}

func Register(form *Registration) Errors {
	var errs Errors

	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	checkUsername(&errs, form.Username)
	checkEmail(&errs, form.Email)
	checkPasswordPair(&errs, form.Password, form.Confirmation)

	return errs
}

// Login is the log in form. Login may be a username or an email.
type Login struct {
	Login    string
	Password string
	Remember bool
}

func LogIn(form *Login) Errors {
	var errs Errors

	form.Login = strings.TrimSpace(form.Login)

	if form.Login == "" {
		errs.Add("login", "Username or email is required")
	}

	if form.Password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// Profile is the profile update form.
type Profile struct {
	Username string
	Email    string
}

func UpdateProfile(form *Profile) Errors {
	var errs Errors

	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)

	checkUsername(&errs, form.Username)
	checkEmail(&errs, form.Email)

	return errs
}

// Post checks a post message, returning it trimmed.
func Post(message string) (string, Errors) {
	var errs Errors

	message = strings.TrimSpace(message)

	if message == "" {
		errs.Add("message", "Message is required")
	} else if utf8.RuneCountInString(message) > MessageMaxLength {
		errs.Add("message", "Message is too long")
	}

	return message, errs
}

// ResetRequest checks the email submitted to request a reset link.
func ResetRequest(email string) (string, Errors) {
	var errs Errors

	email = strings.TrimSpace(email)
	checkEmail(&errs, email)

	return email, errs
}

// ResetPassword checks a new password and its confirmation.
func ResetPassword(password, confirmation string) Errors {
	var errs Errors

	checkPasswordPair(&errs, password, confirmation)

	return errs
}

// Symbol checks a stock symbol, returning it in upper case.
func Symbol(symbol string) (string, Errors) {
	var errs Errors

	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if symbol == "" {
		errs.Add("symbol", "Symbol is required")
	} else if len(symbol) > 16 || strings.IndexFunc(symbol, invalidSymbolRune) >= 0 {
		errs.Add("symbol", "Symbol is not valid")
	}

	return symbol, errs
}

// Trade is the buy or sell form.
type Trade struct {
	Symbol string
	Shares int64
}

// ParseTrade checks the symbol and share count submitted for a trade.
func ParseTrade(symbol, shares string) (Trade, Errors) {
	normalized, errs := Symbol(symbol)
	trade := Trade{Symbol: normalized}

	count, err := strconv.ParseInt(strings.TrimSpace(shares), 10, 64)

	if err != nil || count < 1 {
		errs.Add("shares", "Shares must be a positive integer")
	} else {
		trade.Shares = count
	}

	return trade, errs
}

func invalidSymbolRune(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-')
}

func checkUsername(errs *Errors, username string) {
	length := utf8.RuneCountInString(username)

	if length == 0 {
		errs.Add("username", "Username is required")
	} else if length < UsernameMinLength || length > UsernameMaxLength {
		errs.Add("username", "Username must be between 3 and 20 characters")
	} else if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		errs.Add("username", "Username must not contain spaces")
	}
}

func checkEmail(errs *Errors, email string) {
	if email == "" {
		errs.Add("email", "Email is required")

		return
	}

	address, err := mail.ParseAddress(email)

	if err != nil || address.Address != email || len(email) > EmailMaxLength {
		errs.Add("email", "Email is not valid")
	}
}

func checkPasswordPair(errs *Errors, password, confirmation string) {
	if password == "" {
		errs.Add("password", "Password is required")
	} else if len(password) > PasswordMaxLength {
		errs.Add("password", "Password must be at most 72 bytes")
	}

	if confirmation == "" {
		errs.Add("confirmation", "Please confirm your password")
	} else if password != confirmation {
		errs.Add("confirmation", "Passwords must match")
	}
}
