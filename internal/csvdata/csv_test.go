package csvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/customer-persona-agent/internal/errs"
	"github.com/BerylCAtieno/customer-persona-agent/internal/models"
)

func TestParse(t *testing.T) {
	t.Run("types cells dynamically", func(t *testing.T) {
		text := "customer_id,age,member,segment,total_spent\n" +
			"1,24,true,urban,50.50\n" +
			"2,45,false,,850.75\n"

		ds, err := Parse(text, "customer_id")

		require.NoError(t, err)
		assert.Equal(t, []string{"customer_id", "age", "member", "segment", "total_spent"}, ds.Columns)
		require.Len(t, ds.Records, 2)
		assert.Equal(t, models.Record{
			"customer_id": 1.0, "age": 24.0, "member": true, "segment": "urban", "total_spent": 50.5,
		}, ds.Records[0])
		assert.Nil(t, ds.Records[1]["segment"])
		assert.Equal(t, false, ds.Records[1]["member"])
	})

	t.Run("drops rows without identifier or features", func(t *testing.T) {
		text := "customer_id,age\n" +
			",30\n" +
			"7\n" +
			"8,41\n"

		ds, err := Parse(text, "customer_id")

		require.NoError(t, err)
		require.Len(t, ds.Records, 1)
		assert.Equal(t, 8.0, ds.Records[0]["customer_id"])
	})

	t.Run("short rows lack trailing keys", func(t *testing.T) {
		ds, err := Parse("customer_id,age,visits\n1,30,2\n2,41\n", "customer_id")

		require.NoError(t, err)
		require.Len(t, ds.Records, 2)
		_, ok := ds.Records[1]["visits"]
		assert.False(t, ok)
	})

	t.Run("semicolon delimiter", func(t *testing.T) {
		ds, err := Parse("customer_id;age;visits\n1;30;2\n", "customer_id")

		require.NoError(t, err)
		assert.Equal(t, 2.0, ds.Records[0]["visits"])
	})

	t.Run("strips byte order mark from header", func(t *testing.T) {
		ds, err := Parse("\ufeffcustomer_id,age\n1,30\n", "customer_id")

		require.NoError(t, err)
		assert.Equal(t, []string{"customer_id", "age"}, ds.Columns)
		assert.Equal(t, 1.0, ds.Records[0]["customer_id"])
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty payload", text: "   "},
		{name: "missing identifier column", text: "id,age\n1,30\n"},
		{name: "header only", text: "customer_id,age\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, "customer_id")

			require.Error(t, err)
			assert.True(t, errs.IsBadInput(err))
		})
	}
}
