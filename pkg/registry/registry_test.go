package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/David-Botos/unenrolled-users/pkg/model"
)

func testClients() []model.ClientDescriptor {
	return []model.ClientDescriptor{
		{ID: "parana", Source: model.SourceGoogleDrive, DataTypes: []string{"students", "teachers"}, Company: "SEED-PR: Parana"},
		{ID: "goias", Source: model.SourceFTP, DataTypes: []string{"students", "teachers"}, Company: "SEDUC-GO: Goias"},
		{ID: "mato_grosso", Source: model.SourceGoogleSheets, DataTypes: []string{"students"}, Company: "SEDUC-MT: Mato Grosso"},
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		clients []model.ClientDescriptor
		errMsg  string
	}{
		{
			name:    "empty id",
			clients: []model.ClientDescriptor{{Source: model.SourceFTP, DataTypes: []string{"students"}, Company: "X"}},
			errMsg:  "client ID cannot be empty",
		},
		{
			name: "duplicate id",
			clients: []model.ClientDescriptor{
				{ID: "a", Source: model.SourceFTP, DataTypes: []string{"students"}, Company: "X"},
				{ID: "a", Source: model.SourceFTP, DataTypes: []string{"students"}, Company: "Y"},
			},
			errMsg: "duplicate client ID",
		},
		{
			name:    "bad source",
			clients: []model.ClientDescriptor{{ID: "a", Source: "s3", DataTypes: []string{"students"}, Company: "X"}},
			errMsg:  "unsupported source type",
		},
		{
			name:    "no data types",
			clients: []model.ClientDescriptor{{ID: "a", Source: model.SourceFTP, Company: "X"}},
			errMsg:  "no data types",
		},
		{
			name:    "no company",
			clients: []model.ClientDescriptor{{ID: "a", Source: model.SourceFTP, DataTypes: []string{"students"}}},
			errMsg:  "company name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.clients...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate(t *testing.T) {
	r, err := New(testClients()...)
	require.NoError(t, err)

	c, err := r.Validate("goias", "students")
	require.NoError(t, err)
	assert.Equal(t, "SEDUC-GO: Goias", c.Company)

	_, err = r.Validate("unknown", "students")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfiguration))
	assert.Contains(t, err.Error(), "unsupported client: unknown")

	_, err = r.Validate("mato_grosso", "teachers")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfiguration))
	assert.Contains(t, err.Error(), "unsupported data_type 'teachers'")
}

func TestCompaniesAndClients(t *testing.T) {
	r, err := New(testClients()...)
	require.NoError(t, err)

	assert.Equal(t, []string{"SEDUC-GO: Goias", "SEDUC-MT: Mato Grosso", "SEED-PR: Parana"}, r.Companies())

	ids := make([]string, 0)
	for _, c := range r.Clients() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"goias", "mato_grosso", "parana"}, ids)

	company, err := r.Company("parana")
	require.NoError(t, err)
	assert.Equal(t, "SEED-PR: Parana", company)

	_, err = r.Company("nope")
	assert.Error(t, err)
}
