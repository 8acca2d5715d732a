package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$0", FormatPrice(0))
	assert.Equal(t, "$900", FormatPrice(900))
	assert.Equal(t, "$1,071", FormatPrice(1071))
	assert.Equal(t, "$12,500", FormatPrice(12500))
	assert.Equal(t, "-$3,500", FormatPrice(-3500))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Pan amasado", Truncate("Pan amasado", 20))
	assert.Equal(t, "Pan…", Truncate("Pan amasado", 5))
	assert.Equal(t, "Cañ…", Truncate("Cañón de manjar", 4))
	assert.Equal(t, "P", Truncate("Pan", 1))
	assert.Equal(t, "", Truncate("Pan", 0))
	assert.Equal(t, "", Truncate("Pan", -3))
	assert.Equal(t, "", Truncate("", -1))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "pan-amasado", Slugify("Pan Amasado"))
	assert.Equal(t, "canon-de-manjar", Slugify("  Cañón de manjar! "))
	assert.Equal(t, "kuchen-de-nuez-2", Slugify("Kuchen de nuez (2)"))
	assert.Equal(t, "", Slugify("--"))
}
