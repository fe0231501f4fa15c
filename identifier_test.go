package sqlgate_test

import (
	"errors"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlgate"
)

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"id", "name", "user_id", "_private", "Users", "created_at", "a1", strings.Repeat("a", 64)}
	for _, name := range valid {
		t.Run("valid/"+name[:min(len(name), 16)], func(t *testing.T) {
			id, err := sqlgate.ValidateIdentifier(name)
			require.NoError(t, err)
			assert.Equal(t, name, id.String())
			assert.False(t, id.IsZero())
		})
	}

	invalid := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", "empty"},
		{"too long", strings.Repeat("a", 65), "longer than 64 characters"},
		{"leading digit", "1abc", "must start with a letter or underscore"},
		{"space", "first name", "invalid character"},
		{"hyphen", "first-name", "invalid character"},
		{"dot", "users.id", "invalid character"},
		{"quote", `na"me`, "invalid character"},
		{"unicode", "naïve", "invalid character 'ï' at position 2"},
		{"multibyte first", "é", "invalid character 'é' at position 0"},
		{"space position", "first name", "invalid character ' ' at position 5"},
	}
	for _, tt := range invalid {
		t.Run("invalid/"+tt.name, func(t *testing.T) {
			_, err := sqlgate.ValidateIdentifier(tt.input)
			var idErr *sqlgate.InvalidIdentifierError
			require.ErrorAs(t, err, &idErr)
			assert.Equal(t, tt.input, idErr.Value)
			assert.Contains(t, idErr.Reason, tt.reason)
			assert.ErrorIs(t, err, sqlgate.ErrInvalidIdentifier)
		})
	}
}

func TestValidateIdentifier_Malicious(t *testing.T) {
	inputs := []string{
		"id; DROP TABLE users",
		"users--",
		"name' OR '1'='1",
		"id/*comment*/",
		"id)",
		"id\x00",
		"id\n",
		"`id`",
	}
	for _, in := range inputs {
		_, err := sqlgate.ValidateIdentifier(in)
		if !errors.Is(err, sqlgate.ErrInvalidIdentifier) {
			t.Errorf("ValidateIdentifier(%q) = %v, want ErrInvalidIdentifier", in, err)
		}
	}
}

func TestValidateIdentifier_ReservedWords(t *testing.T) {
	for _, kw := range []string{"DROP", "drop", "Drop", "SELECT", "select", "UNION", "union", "table", "where", "user", "order", "group"} {
		_, err := sqlgate.ValidateIdentifier(kw)
		var kwErr *sqlgate.ReservedKeywordError
		if !errors.As(err, &kwErr) {
			t.Errorf("ValidateIdentifier(%q) = %v, want *ReservedKeywordError", kw, err)
			continue
		}
		if kwErr.Value != kw {
			t.Errorf("ReservedKeywordError.Value = %q, want %q", kwErr.Value, kw)
		}
	}

	// Keywords embedded in longer names are fine.
	for _, name := range []string{"user_id", "order_total", "dropped_at", "selection"} {
		if _, err := sqlgate.ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}
}

// The validator must agree with the grammar on arbitrary input.
func TestValidateIdentifier_Generated(t *testing.T) {
	grammar := regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	alphabet := []rune("abcXYZ_019 ;'\"-/*().=\t")
	words := []string{"drop", "SELECT", "Union", "id", "from"}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 5000; i++ {
		var sb strings.Builder
		if rng.IntN(4) == 0 {
			sb.WriteString(words[rng.IntN(len(words))])
		} else {
			n := rng.IntN(70)
			for j := 0; j < n; j++ {
				sb.WriteRune(alphabet[rng.IntN(len(alphabet))])
			}
		}
		s := sb.String()

		want := grammar.MatchString(s) && len(s) <= sqlgate.MaxIdentifierLength && !sqlgate.IsReservedWord(s)
		_, err := sqlgate.ValidateIdentifier(s)
		if got := err == nil; got != want {
			t.Fatalf("ValidateIdentifier(%q) ok = %v, want %v (err %v)", s, got, want, err)
		}
	}
}

func TestMustIdentifier(t *testing.T) {
	assert.Equal(t, "email", sqlgate.MustIdentifier("email").String())
	assert.Panics(t, func() { sqlgate.MustIdentifier("e mail") })
}
