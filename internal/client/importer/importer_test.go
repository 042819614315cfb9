package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/mlms/internal/client/importer"
	"github.com/MrJamesThe3rd/mlms/internal/encoding"
)

func TestParser_Parse(t *testing.T) {
	type testCase struct {
		name       string
		content    string
		wantLen    int
		wantErrors int
		verify     func(t *testing.T, res importer.Result)
	}

	tests := []testCase{
		{
			name: "comma delimited with optional columns",
			content: `Name,CNIC,Phone,Address,Monthly Income,Occupation,Household Size
Ahmed Khan,12345-6789012-3,0300-1234567,"123 Gulberg, Lahore","45,000",Shopkeeper,5
Fatima Ali,23456-7890123-4,0321-7654321,"456 DHA, Karachi",,,
`,
			wantLen: 2,
			verify: func(t *testing.T, res importer.Result) {
				first := res.Clients[0]
				assert.Equal(t, "Ahmed Khan", first.Name)
				assert.Equal(t, "123 Gulberg, Lahore", first.Address)
				require.NotNil(t, first.Income)
				assert.True(t, decimal.NewFromInt(45000).Equal(*first.Income))
				assert.Equal(t, "Shopkeeper", first.Occupation)
				require.NotNil(t, first.HouseholdSize)
				assert.Equal(t, 5, *first.HouseholdSize)

				second := res.Clients[1]
				assert.Nil(t, second.Income)
				assert.Nil(t, second.HouseholdSize)
			},
		},
		{
			name: "semicolon delimited with preamble",
			content: `Branch register;Lahore
Exported;2024-01-01

name;cnic;mobile;address
Bilal Chaudhry;34567-8901234-5;0333-1122334;789 F-8, Islamabad
`,
			wantLen: 1,
			verify: func(t *testing.T, res importer.Result) {
				assert.Equal(t, "Bilal Chaudhry", res.Clients[0].Name)
				assert.Equal(t, "0333-1122334", res.Clients[0].Phone)
				assert.Equal(t, "789 F-8, Islamabad", res.Clients[0].Address)
			},
		},
		{
			name: "bad rows are reported and skipped",
			content: `Name,CNIC,Phone,Address,Income,Household Size
Ahmed Khan,12345-6789012-3,0300-1234567,Lahore,abc,
,23456-7890123-4,0321-7654321,Karachi,,
Bilal Chaudhry,34567-8901234-5,0333-1122334,Islamabad,Rs. 30000,0
Sana Mir,45678-9012345-6,0345-9988776,Multan,PKR 20000,4
`,
			wantLen:    1,
			wantErrors: 3,
			verify: func(t *testing.T, res importer.Result) {
				assert.Equal(t, "Sana Mir", res.Clients[0].Name)
				assert.True(t, decimal.NewFromInt(20000).Equal(*res.Clients[0].Income))

				assert.Equal(t, 2, res.Errors[0].Row)
				assert.Contains(t, res.Errors[0].Error(), "invalid income")
				assert.Equal(t, 3, res.Errors[1].Row)
				assert.Contains(t, res.Errors[1].Error(), "missing Name")
				assert.Contains(t, res.Errors[2].Error(), "invalid household size")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := importer.NewParser().Parse(strings.NewReader(tt.content))
			require.NoError(t, err)
			require.Len(t, res.Clients, tt.wantLen)
			assert.Len(t, res.Errors, tt.wantErrors)

			if tt.verify != nil {
				tt.verify(t, res)
			}
		})
	}
}

func TestParser_NoHeader(t *testing.T) {
	_, err := importer.NewParser().Parse(strings.NewReader("foo,bar\n1,2\n"))
	require.ErrorIs(t, err, importer.ErrNoHeader)
}

func TestParser_Windows1252(t *testing.T) {
	content := "Name;CNIC;Phone;Address\nJosé Ñúñez;11111-1111111-1;0300-0000000;Café Road\n"

	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(content))
	require.NoError(t, err)

	res, err := importer.NewParser().Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, res.Clients, 1)
	assert.Equal(t, "José Ñúñez", res.Clients[0].Name)
	assert.Equal(t, "Café Road", res.Clients[0].Address)
	assert.Equal(t, encoding.Windows1252, res.Encoding)
}

func TestParser_UrduWindows1256(t *testing.T) {
	content := "Name,CNIC,Phone,Address,Occupation\n" +
		"محمد اسلم,35202-1234567-1,0300-1234567,گلبرگ لاہور,دکاندار\n"

	encoded, err := charmap.Windows1256.NewEncoder().Bytes([]byte(content))
	require.NoError(t, err)

	res, err := importer.NewParser().Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, res.Clients, 1)
	assert.Equal(t, encoding.Windows1256, res.Encoding)
	assert.Equal(t, "محمد اسلم", res.Clients[0].Name)
	assert.Equal(t, "گلبرگ لاہور", res.Clients[0].Address)
	assert.Equal(t, "دکاندار", res.Clients[0].Occupation)
}
