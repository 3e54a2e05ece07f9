package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestRecord(t *testing.T) {
	base := models.PlayerRecord{
		PlayerID:  "P100",
		FirstName: "John",
		LastName:  "Smith",
		Postcode:  "ab1 2cd",
		DOB:       "1990-05-15",
		Mobile:    "07700 900123",
		Email:     "John@Example.com",
		Casino:    "Lucky Star",
		NetworkID: "N1",
	}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Record(base), Record(base))
	})

	t.Run("cosmetic differences collapse", func(t *testing.T) {
		variant := base
		variant.FirstName = "  JOHN "
		variant.Email = "john@example.COM"
		variant.Mobile = "07700-900-123"
		variant.Casino = " lucky star"
		assert.Equal(t, Record(base), Record(variant))
	})

	t.Run("material differences diverge", func(t *testing.T) {
		variant := base
		variant.LastName = "Smyth"
		assert.NotEqual(t, Record(base), Record(variant))

		variant = base
		variant.DOB = "1990-05-16"
		assert.NotEqual(t, Record(base), Record(variant))

		variant = base
		variant.PlayerID = "P101"
		assert.NotEqual(t, Record(base), Record(variant))
	})

	t.Run("field boundaries are unambiguous", func(t *testing.T) {
		a := models.PlayerRecord{FirstName: "ab", LastName: "c"}
		b := models.PlayerRecord{FirstName: "a", LastName: "bc"}
		assert.NotEqual(t, Record(a), Record(b))
	})
}

func TestHasChanged(t *testing.T) {
	assert.False(t, HasChanged("abc", "abc"))
	assert.True(t, HasChanged("abc", "def"))
}
