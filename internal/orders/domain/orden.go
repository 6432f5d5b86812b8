package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NuevaOrdenCompra generates a buy-order code like OC1756712345678a3f2c1.
// The millisecond timestamp keeps codes sortable; the UUID fragment breaks
// ties between checkouts started in the same millisecond.
func NuevaOrdenCompra() string {
	sufijo := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("OC%d%s", time.Now().UnixMilli(), sufijo)
}
