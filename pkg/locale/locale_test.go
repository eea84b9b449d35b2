package locale_test

import (
	"testing"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/locale"
	"github.com/stretchr/testify/assert"
)

func TestManager_Defaults(t *testing.T) {
	assert.Equal(t, domain.DefaultLocale, locale.NewManager("").Locale())
	assert.Equal(t, domain.DefaultLocale, locale.NewManager("not a tag!").Locale())
	assert.Equal(t, "en", locale.NewManager("en").Locale())
}

func TestManager_SetLocale(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want string
		err  bool
	}{
		{"default kept", "default", "default", false},
		{"canonical region", "pt-br", "pt-BR", false},
		{"plain language", "de", "de", false},
		{"invalid", "!!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := locale.NewManager("en")
			err := m.SetLocale(tt.tag)
			if tt.err {
				assert.ErrorIs(t, err, domain.ErrInvalidLocale)
				assert.Equal(t, "en", m.Locale())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, m.Locale())
		})
	}
}
