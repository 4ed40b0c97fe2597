package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

func TestResolveJoinColumn(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		patterns []string
		want     string
		wantErr  bool
	}{
		{name: "case-insensitive substring", columns: []string{"Nome", "E-MAIL", "Turma"}, want: "E-MAIL"},
		{name: "email column", columns: []string{"Nome", "Email", "Turma"}, want: "Email"},
		{name: "first column in order wins", columns: []string{"email_secundario", "Email"}, want: "email_secundario"},
		{name: "separators ignored", columns: []string{"Nome", "e_mail_aluno"}, want: "e_mail_aluno"},
		{name: "no match", columns: []string{"Nome", "CPF"}, wantErr: true},
		{name: "no columns", columns: nil, wantErr: true},
		{name: "pattern priority", columns: []string{"Email", "Login"}, patterns: []string{"login", "email"}, want: "Login"},
		{name: "falls through to next pattern", columns: []string{"Email"}, patterns: []string{"login", "email"}, want: "Email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveJoinColumn(tt.columns, tt.patterns...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, model.IsKind(err, model.KindColumnNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveJoinColumn_Deterministic(t *testing.T) {
	columns := []string{"Nome", "E-mail institucional", "Email pessoal", "Turma"}

	first, err := ResolveJoinColumn(columns)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		got, err := ResolveJoinColumn(columns)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
	assert.Equal(t, "E-mail institucional", first)
}
