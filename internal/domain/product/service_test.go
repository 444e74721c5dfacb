package product

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRepo struct {
	byID     map[string]*Product
	lastPage Page
	calls    int
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: make(map[string]*Product)}
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.byID {
		if existing.Name == p.Name {
			return ErrDuplicateName
		}
	}
	m.byID[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByName(_ context.Context, name string) (*Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.byID {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByNames(_ context.Context, names []string) ([]Product, error) {
	var out []Product
	for _, n := range names {
		for _, p := range m.byID {
			if p.Name == n {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (m *mockRepo) List(_ context.Context, page Page) ([]Product, int, error) {
	m.calls++
	m.lastPage = page
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepo) Update(_ context.Context, id string, patch Patch, at time.Time) (*Product, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	p.UpdatedAt = at
	return p, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// --- Helpers ---

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestCreate(t *testing.T) {
	svc, repo := newTestService()

	p, err := svc.Create(context.Background(), Draft{
		Name:          "Laptop",
		Price:         decimal.RequireFromString("1200.50"),
		Category:      "tech",
		StockQuantity: 5,
	})
	require.NoError(t, err)

	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, testNow, p.UpdatedAt)
	assert.Contains(t, repo.byID, p.ID)

	_, err = svc.Create(context.Background(), Draft{Name: "Laptop", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		draft Draft
		field string
	}{
		{name: "NoName", draft: Draft{Name: "  ", Price: decimal.NewFromInt(1)}, field: "name"},
		{name: "NegativePrice", draft: Draft{Name: "A", Price: decimal.NewFromInt(-1)}, field: "price"},
		{name: "NegativeStock", draft: Draft{Name: "A", StockQuantity: -3}, field: "stock_quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()

			_, err := svc.Create(context.Background(), tt.draft)
			var target *ValidationError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.field, target.Field)
			assert.Zero(t, repo.calls)
		})
	}
}

func TestList_NormalizesPage(t *testing.T) {
	svc, repo := newTestService()

	_, _, err := svc.List(context.Background(), Page{Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, Limit: MaxLimit}, repo.lastPage)

	repo.err = errors.New("boom")
	_, _, err = svc.List(context.Background(), Page{})
	assert.ErrorContains(t, err, "list products")
}

func TestGetByName(t *testing.T) {
	svc, _ := newTestService()
	created, err := svc.Create(context.Background(), Draft{Name: "Mouse", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	got, err := svc.GetByName(context.Background(), "Mouse")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetByName(context.Background(), "mouse")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	svc, repo := newTestService()
	created, err := svc.Create(context.Background(), Draft{Name: "Mouse", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	later := testNow.Add(time.Minute)
	svc.now = func() time.Time { return later }

	got, err := svc.Update(context.Background(), created.ID, Patch{Price: ptr(decimal.NewFromInt(30))})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(got.Price))
	assert.Equal(t, later, got.UpdatedAt)

	calls := repo.calls
	_, err = svc.Update(context.Background(), created.ID, Patch{StockQuantity: ptr(-1)})
	var target *ValidationError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, calls, repo.calls)

	_, err = svc.Update(context.Background(), uuid.NewString(), Patch{Name: ptr("X")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(context.Background(), "not-a-uuid", Patch{Name: ptr("X")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, calls+1, repo.calls)
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	created, err := svc.Create(context.Background(), Draft{Name: "Mouse", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, repo.byID)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), "bogus"), ErrNotFound)

	repo.err = errors.New("boom")
	assert.ErrorContains(t, svc.Delete(context.Background(), uuid.NewString()), "delete product")
}

func TestPage(t *testing.T) {
	tests := []struct {
		in     Page
		want   Page
		offset int
	}{
		{in: Page{}, want: Page{Page: 1, Limit: 10}, offset: 0},
		{in: Page{Page: 3, Limit: 20}, want: Page{Page: 3, Limit: 20}, offset: 40},
		{in: Page{Page: -1, Limit: 500}, want: Page{Page: 1, Limit: 100}, offset: 0},
	}
	for _, tt := range tests {
		got := tt.in.Normalize()
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.offset, got.Offset())
	}

	p := Page{Page: 1, Limit: 10}
	assert.Equal(t, 0, p.TotalPages(0))
	assert.Equal(t, 1, p.TotalPages(10))
	assert.Equal(t, 2, p.TotalPages(11))
	assert.Equal(t, 0, Page{}.TotalPages(5))
}

func TestPatch(t *testing.T) {
	assert.True(t, Patch{}.Empty())
	assert.False(t, Patch{Category: ptr("")}.Empty())

	var target *ValidationError
	require.ErrorAs(t, Patch{Name: ptr(" ")}.Validate(), &target)
	assert.Equal(t, "name", target.Field)
	assert.NoError(t, Patch{Description: ptr("")}.Validate())
}

func TestService_TimestampsAtMicrosecondPrecision(t *testing.T) {
	svc, _ := newTestService()
	svc.now = func() time.Time { return testNow.Add(1500 * time.Nanosecond) }

	created, err := svc.Create(context.Background(), Draft{Name: "Mouse", Price: decimal.NewFromInt(25)})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Microsecond), created.CreatedAt)

	svc.now = func() time.Time { return testNow.Add(2999 * time.Nanosecond) }
	got, err := svc.Update(context.Background(), created.ID, Patch{Name: ptr("Trackball")})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(2*time.Microsecond), got.UpdatedAt)
}
