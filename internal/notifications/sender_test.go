package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatData(t *testing.T) {
	out := formatData(map[string]interface{}{
		"ordenCompra": "OC123",
		"monto":       45980,
		"items":       []string{"a", "b"},
	})

	assert.Equal(t, "OC123", out["ordenCompra"])
	assert.Equal(t, "45980", out["monto"])
	assert.Equal(t, `["a","b"]`, out["items"])
	assert.Equal(t, "FLUTTER_NOTIFICATION_CLICK", out["click_action"],
		"las apps enrutan con click_action")
}

func TestFormatDataVacio(t *testing.T) {
	out := formatData(nil)
	require.Len(t, out, 1)
	assert.Equal(t, "FLUTTER_NOTIFICATION_CLICK", out["click_action"])
}
