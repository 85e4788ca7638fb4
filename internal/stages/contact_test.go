package stages

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

type fakeGetter struct {
	status int
	body   string
	err    error
	urls   []string
}

func (g *fakeGetter) Get(_ context.Context, url string) (int, string, error) {
	g.urls = append(g.urls, url)
	return g.status, g.body, g.err
}

func TestContactEmailsExcludePlaceholders(t *testing.T) {
	t.Parallel()

	content := `<html><body>
Reach us at sales@acme.com or Support@Acme.com.
Example form: example@example.com, user@example.com, name@example.com.
Also sales@acme.com again.
</body></html>`

	s := NewContactStage(nil, &fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), content, "https://acme.com", &rec)

	require.Equal(t, []string{"sales@acme.com", "Support@Acme.com"}, rec.Emails)
}

func TestContactPhonesMatchKnownFormats(t *testing.T) {
	t.Parallel()

	content := `<html><body>
US: (555) 123-4567
Dashed: 555-987-6543
International: +44 20 7946 0958
</body></html>`

	s := NewContactStage(nil, &fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), content, "https://acme.com", &rec)

	require.Contains(t, rec.Phones, "(555) 123-4567")
	require.Contains(t, rec.Phones, "555-987-6543")
	require.Contains(t, rec.Phones, "+44 20 7946 0958")
}

func TestContactAddressesFromSection(t *testing.T) {
	t.Parallel()

	content := `<html><body>
<div class="contact-info">
  <p>123 Main Street, Springfield, IL 62704</p>
  <p>Opening hours: Mon-Fri</p>
</div>
</body></html>`

	s := NewContactStage(nil, &fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), content, "https://acme.com", &rec)

	require.Equal(t, []string{"123 Main Street, Springfield, IL 62704"}, rec.Addresses)
}

func TestContactAddressFallbackPOBox(t *testing.T) {
	t.Parallel()

	content := `<html><body>Mail us at P.O. Box 915, Springfield, IL 62704.</body></html>`

	s := NewContactStage(nil, &fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), content, "https://acme.com", &rec)

	require.Len(t, rec.Addresses, 1)
	require.Contains(t, rec.Addresses[0], "Box 915")
}

func TestContactPageContentIsCombined(t *testing.T) {
	t.Parallel()

	main := `<html><body><a href="/contact">Contact us</a></body></html>`
	getter := &fakeGetter{status: http.StatusOK, body: `<html><body>hello@acme.com</body></html>`}

	s := NewContactStage(getter, &fakeOpLog{}, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), main, "https://acme.com", &rec)

	require.Equal(t, []string{"https://acme.com/contact"}, getter.urls)
	require.Equal(t, []string{"hello@acme.com"}, rec.Emails)
}

func TestContactPageFetchFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	main := `<html><body><a href="/contact">Contact</a> info@acme.com</body></html>`
	getter := &fakeGetter{err: errors.New("timeout")}
	oplog := &fakeOpLog{}

	s := NewContactStage(getter, oplog, nil)
	var rec extraction.CompanyRecord
	s.Extract(context.Background(), main, "https://acme.com", &rec)

	require.Equal(t, []string{"info@acme.com"}, rec.Emails)
	require.Contains(t, oplog.errorKinds, "ContactPageFetchError")
}
