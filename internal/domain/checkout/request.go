package checkout

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultProductCategory = "Música Digital"
	isoMillis              = "2006-01-02T15:04:05.000Z07:00"
)

func buildRequest(form FormData, summary Summary, cart CartSnapshot, category, reference string, now time.Time) Request {
	names := make([]string, 0, len(cart.Lines))
	artists := make([]string, 0, len(cart.Lines))
	genres := make([]string, 0, len(cart.Lines))
	formats := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		names = append(names, line.Name)
		artists = append(artists, line.Artist)
		genres = append(genres, line.Genre)
		formats = append(formats, line.Format)
	}

	return Request{
		Amount:          summary.Total,
		Currency:        summary.Currency,
		CustomerEmail:   form.CustomerEmail,
		CustomerName:    form.CustomerName,
		CustomerPhone:   form.CustomerPhone,
		ProductID:       strings.Join(cart.ProductIDs(), ","),
		ProductName:     strings.Join(names, ", "),
		ProductCategory: category,
		ProductArtist:   joinNonEmpty(artists),
		ProductGenre:    joinNonEmpty(genres),
		ProductFormat:   joinNonEmpty(formats),
		Description:     fmt.Sprintf("Compra de %d producto(s) musical(es)", len(cart.Lines)),
		Metadata: map[string]interface{}{
			"cartItems":    len(cart.Lines),
			"totalItems":   cart.TotalQuantity(),
			"purchaseDate": now.UTC().Format(isoMillis),
		},
		Reference: reference,
	}
}

// joinNonEmpty joins with ", " but yields "" when every value is empty.
func joinNonEmpty(values []string) string {
	for _, v := range values {
		if v != "" {
			return strings.Join(values, ", ")
		}
	}
	return ""
}
