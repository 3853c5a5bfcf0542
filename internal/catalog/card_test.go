package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/portalx/internal/model"
)

func TestFormatViews(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{3460, "3.5K"},
		{8499, "8.5K"},
		{1_000_000, "1.0M"},
		{1_260_000, "1.3M"},
	}
	for _, tt := range tests {
		if got := FormatViews(tt.in); got != tt.want {
			t.Errorf("FormatViews(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber_BrazilianGrouping(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{500, "500"},
		{12345, "12.345"},
		{1234567, "1.234.567"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewCard_Badges(t *testing.T) {
	tests := []struct {
		name    string
		listing model.Listing
		want    []string
	}{
		{"バッジなし", model.Listing{Views: 5000}, []string{}},
		{"hot", model.Listing{Views: 5001}, []string{BadgeHot}},
		{"全て", model.Listing{Views: 9000, IsNew: true, IsPremium: true}, []string{BadgeNew, BadgePremium, BadgeHot}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, NewCard(tt.listing).Badges); diff != "" {
				t.Errorf("Badges (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewCard_Fields(t *testing.T) {
	l := model.Listing{
		ID: 9, Name: "Flagras", Category: model.CategoryUniversitarias, State: "SP", City: "Campinas",
		Views: 4321, Image: "img", Link: "https://t.me/segredo",
	}

	got := NewCard(l)
	want := Card{
		ID: 9, Name: "Flagras", Category: "universitarias", CategoryLabel: "Universitárias",
		State: "SP", City: "Campinas", Location: "Campinas - SP",
		Views: 4321, ViewsShort: "4.3K", ViewsFormatted: "4.321", Image: "img",
		Badges: []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewCard() (-want +got):\n%s", diff)
	}
	if len(NewCards([]model.Listing{l, l})) != 2 {
		t.Error("NewCards は入力と同数のカードを返すべき")
	}
}
