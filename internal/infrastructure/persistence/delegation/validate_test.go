package delegation

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

type ticket struct {
	Model
	Title    string `validate:"required,notblank,min=3"`
	Code     string `validate:"omitempty,len=4"`
	Priority int    `validate:"gte=1,lte=5"`
	Seats    int    `validate:"max=10"`
	Status   string `validate:"omitempty,oneof=open closed"`
	Email    string `validate:"omitempty,email"`
	OwnerID  *uuid.UUID
	Owner    *contact
	OwnerRef string `gorm:"column:owner_ref" validate:"omitempty,numeric"`
}

func (t *ticket) Validate(_ context.Context, errs *Errors) {
	if t.Status == "closed" && t.Priority == 5 {
		errs.Add(BaseAttribute, "Closed tickets cannot be urgent")
	}
}

func TestRecordValidator(t *testing.T) {
	ctx := context.Background()
	s, err := schema.Parse(&ticket{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	v := newRecordValidator(schema.NamingStrategy{})

	tests := []struct {
		name   string
		ticket ticket
		want   map[string]string
	}{
		{
			name:   "valid",
			ticket: ticket{Title: "Broken", Priority: 1},
			want:   map[string]string{},
		},
		{
			name: "tag messages",
			ticket: ticket{
				Title:    "ab",
				Code:     "12345",
				Priority: 9,
				Seats:    11,
				Status:   "pending",
				Email:    "nope",
				OwnerRef: "abc",
			},
			want: map[string]string{
				"title":     "is too short (minimum is 3 characters)",
				"code":      "is the wrong length (should be 4 characters)",
				"priority":  "must be less than or equal to 5",
				"seats":     "must be less than or equal to 10",
				"status":    "is not included in the list",
				"email":     "is invalid",
				"owner_ref": "is not a number",
			},
		},
		{
			name:   "required and gte",
			ticket: ticket{},
			want: map[string]string{
				"title":    "can't be blank",
				"priority": "must be greater than or equal to 1",
			},
		},
		{
			name:   "whitespace is blank",
			ticket: ticket{Title: "    ", Priority: 1},
			want:   map[string]string{"title": "can't be blank"},
		},
		{
			name:   "custom rule",
			ticket: ticket{Title: "Fire", Priority: 5, Status: "closed"},
			want:   map[string]string{BaseAttribute: "Closed tickets cannot be urgent"},
		},
		{
			name:   "associations are not descended into",
			ticket: ticket{Title: "Fire", Priority: 1, Owner: &contact{Email: "nope"}},
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errs Errors
			v.check(ctx, s, &tt.ticket, &errs)

			got := make(map[string]string)
			for _, attr := range errs.Attributes() {
				got[attr] = errs.On(attr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
