package store

import "testing"

func TestListFilterNormalize(t *testing.T) {
	tests := []struct {
		in   ListFilter
		want ListFilter
	}{
		{ListFilter{}, ListFilter{Limit: MaxPageSize, OrderBy: OrderByStart}},
		{ListFilter{Limit: 50, Offset: -3}, ListFilter{Limit: MaxPageSize, OrderBy: OrderByStart}},
		{ListFilter{Limit: 3, Offset: 6, OrderBy: OrderByCreated}, ListFilter{Limit: 3, Offset: 6, OrderBy: OrderByCreated}},
		{ListFilter{Limit: 3, OrderBy: "distance"}, ListFilter{Limit: 3, OrderBy: OrderByStart}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
