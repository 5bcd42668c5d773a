package pagination_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/linkguard/pkg/pagination"
	"github.com/JaimeStill/linkguard/pkg/query"
)

var bounds = pagination.Config{
	DefaultPageSize: pagination.DefaultPageSize,
	MaxPageSize:     pagination.DefaultMaxSize,
}

func TestConfig_Finalize(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg pagination.Config
		require.NoError(t, cfg.Finalize(nil))
		assert.Equal(t, bounds, cfg)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("LINKGUARD_TEST_PAGE_SIZE", "50")
		t.Setenv("LINKGUARD_TEST_MAX_PAGE", "200")

		var cfg pagination.Config
		require.NoError(t, cfg.Finalize(&pagination.ConfigEnv{
			DefaultPageSize: "LINKGUARD_TEST_PAGE_SIZE",
			MaxPageSize:     "LINKGUARD_TEST_MAX_PAGE",
		}))
		assert.Equal(t, pagination.Config{DefaultPageSize: 50, MaxPageSize: 200}, cfg)
	})
}

func TestConfig_FinalizeInvalid(t *testing.T) {
	t.Setenv("LINKGUARD_TEST_PAGE_SIZE", "-5")

	tests := []struct {
		name string
		cfg  pagination.Config
		env  *pagination.ConfigEnv
		want string
	}{
		{
			name: "default above max",
			cfg:  pagination.Config{DefaultPageSize: 200, MaxPageSize: 100},
			want: "default_page_size 200 cannot exceed max_page_size 100",
		},
		{
			name: "negative default from env",
			env:  &pagination.ConfigEnv{DefaultPageSize: "LINKGUARD_TEST_PAGE_SIZE"},
			want: "default_page_size must be positive",
		},
		{
			name: "negative max from env",
			env:  &pagination.ConfigEnv{MaxPageSize: "LINKGUARD_TEST_PAGE_SIZE"},
			want: "max_page_size must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := bounds
	cfg.Merge(&pagination.Config{DefaultPageSize: 50})
	assert.Equal(t, pagination.Config{DefaultPageSize: 50, MaxPageSize: 100}, cfg)
}

func TestPageRequest_Normalize(t *testing.T) {
	blank := "  "
	term := " paypal "

	tests := []struct {
		name string
		in   pagination.PageRequest
		want pagination.PageRequest
	}{
		{"empty", pagination.PageRequest{}, pagination.PageRequest{Page: 1, PageSize: 20}},
		{"negative page", pagination.PageRequest{Page: -3, PageSize: 10}, pagination.PageRequest{Page: 1, PageSize: 10}},
		{"oversized page", pagination.PageRequest{Page: 4, PageSize: 1000}, pagination.PageRequest{Page: 4, PageSize: 100}},
		{"blank search", pagination.PageRequest{Page: 2, PageSize: 5, Search: &blank}, pagination.PageRequest{Page: 2, PageSize: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize(bounds)
			assert.Equal(t, tt.want, tt.in)
		})
	}

	t.Run("search trimmed", func(t *testing.T) {
		req := pagination.PageRequest{Search: &term}
		req.Normalize(bounds)
		require.NotNil(t, req.Search)
		assert.Equal(t, "paypal", *req.Search)
		assert.Equal(t, " paypal ", term)
	})
}

func TestPageRequest_Offset(t *testing.T) {
	assert.Equal(t, 0, (&pagination.PageRequest{Page: 1, PageSize: 20}).Offset())
	assert.Equal(t, 20, (&pagination.PageRequest{Page: 2, PageSize: 20}).Offset())
	assert.Equal(t, 90, (&pagination.PageRequest{Page: 10, PageSize: 10}).Offset())
}

func TestPageRequestFromQuery(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{
		"page":      {"2"},
		"page_size": {"15"},
		"search":    {"  paypal "},
		"sort":      {"score,-detected_at"},
	}, bounds)

	assert.Equal(t, 2, req.Page)
	assert.Equal(t, 15, req.PageSize)
	require.NotNil(t, req.Search)
	assert.Equal(t, "paypal", *req.Search)
	assert.Equal(t, pagination.SortFields{
		{Field: "score"},
		{Field: "detected_at", Descending: true},
	}, req.Sort)

	t.Run("unparseable numbers fall back", func(t *testing.T) {
		req := pagination.PageRequestFromQuery(url.Values{"page": {"x"}, "page_size": {"many"}}, bounds)
		assert.Equal(t, 1, req.Page)
		assert.Equal(t, 20, req.PageSize)
		assert.Nil(t, req.Search)
		assert.Empty(t, req.Sort)
	})
}

func TestPageRequest_JSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"sort string", `{"page": 3, "sort": "score,-detected_at"}`},
		{"sort array", `{"page": 3, "sort": [{"Field": "score"}, {"Field": "detected_at", "Descending": true}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req pagination.PageRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			assert.Equal(t, 3, req.Page)
			assert.Equal(t, pagination.SortFields{
				query.SortField{Field: "score"},
				query.SortField{Field: "detected_at", Descending: true},
			}, req.Sort)
		})
	}

	var req pagination.PageRequest
	assert.Error(t, json.Unmarshal([]byte(`{"sort": 7}`), &req))
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		page     int
		pageSize int
		pages    int
		next     bool
	}{
		{"exact", 100, 1, 20, 5, true},
		{"remainder", 101, 6, 20, 6, false},
		{"single page", 5, 1, 20, 1, false},
		{"empty", 0, 1, 20, 1, false},
		{"zero page size", 37, 1, 0, 1, false},
		{"past the end", 45, 9, 20, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pagination.NewPageResult([]int{1}, tt.total, tt.page, tt.pageSize)
			assert.Equal(t, tt.pages, res.TotalPages)
			assert.Equal(t, tt.next, res.HasNext)
			assert.Equal(t, tt.total, res.Total)
			assert.Equal(t, tt.page, res.Page)
			assert.Equal(t, tt.pageSize, res.PageSize)
		})
	}
}

func TestNewPageResult_NilData(t *testing.T) {
	res := pagination.NewPageResult[string](nil, 0, 1, 20)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": [], "total": 0, "page": 1, "page_size": 20, "total_pages": 1, "has_next": false}`, string(b))
}
