package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestParseCSV(t *testing.T) {
	t.Run("display style headers", func(t *testing.T) {
		input := "First Name,Last Name,Postcode,DOB,Mobile,Email,Casino,Network ID,Player ID\n" +
			"John,Smith,AB1 2CD,1990-05-15,07700900123,john@example.com,Lucky Star,N1,P100\n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Empty(t, result.Rejected)

		rec := result.Records[0]
		assert.Equal(t, "P100", rec.PlayerID)
		assert.Equal(t, "John", rec.FirstName)
		assert.Equal(t, "Smith", rec.LastName)
		assert.Equal(t, "1990-05-15", rec.DOB)
		assert.Equal(t, "Lucky Star", rec.Casino)
		assert.Equal(t, "N1", rec.NetworkID)
	})

	t.Run("snake case headers in any order", func(t *testing.T) {
		input := "player_id,casino,dob,last_name,first_name\n" +
			"P7,Golden Palm,1985-01-01,Doe,Jane\n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "P7", result.Records[0].PlayerID)
		assert.Equal(t, "Jane", result.Records[0].FirstName)
	})

	t.Run("unknown columns are ignored", func(t *testing.T) {
		input := "Player ID,First Name,Last Name,Loyalty Tier\nP1,John,Smith,Gold\n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
	})

	t.Run("row without player id is rejected not fatal", func(t *testing.T) {
		input := "Player ID,First Name,Last Name\n" +
			"P1,John,Smith\n" +
			",Jane,Doe\n" +
			"P3,Anne,Brown\n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, result.Records, 2)
		require.Len(t, result.Rejected, 1)
		assert.Equal(t, 3, result.Rejected[0].Line)
		assert.Equal(t, "missing player id", result.Rejected[0].Reason)
	})

	t.Run("row without any name is rejected", func(t *testing.T) {
		input := "Player ID,First Name,Last Name\nP1,,\n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		assert.Empty(t, result.Records)
		require.Len(t, result.Rejected, 1)
		assert.Equal(t, "missing name", result.Rejected[0].Reason)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		assert.Error(t, err)
	})

	t.Run("no recognized columns", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("foo,bar\n1,2\n"))
		assert.Error(t, err)
	})

	t.Run("values are trimmed", func(t *testing.T) {
		input := "Player ID,First Name,Last Name\n P1 , John , Smith \n"

		result, err := ParseCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
		assert.Equal(t, "P1", result.Records[0].PlayerID)
		assert.Equal(t, "John", result.Records[0].FirstName)
	})
}

func TestValidateRecords(t *testing.T) {
	records := []models.PlayerRecord{
		{PlayerID: "P1", FirstName: "John", LastName: "Smith"},
		{PlayerID: "", FirstName: "Jane", LastName: "Doe"},
		{PlayerID: "P3"},
	}

	result := ValidateRecords(records)
	assert.Len(t, result.Records, 1)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 2, result.Rejected[0].Line)
	assert.Equal(t, "missing player id", result.Rejected[0].Reason)
	assert.Equal(t, 3, result.Rejected[1].Line)
	assert.Equal(t, "missing name", result.Rejected[1].Reason)
}
