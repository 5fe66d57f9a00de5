package models

import "time"

// OppositionStatus is the review status of an opposition request.
type OppositionStatus string

const (
	OppositionStatusPending  OppositionStatus = "pending"
	OppositionStatusApproved OppositionStatus = "approved"
	OppositionStatusRefused  OppositionStatus = "refused"
)

// Valid reports whether s is one of the known statuses.
func (s OppositionStatus) Valid() bool {
	switch s {
	case OppositionStatusPending, OppositionStatusApproved, OppositionStatusRefused:
		return true
	}
	return false
}

// Opposition is a taxpayer request to revise the taxable attributes of one property.
// Nil proposed fields mean no change is requested for that attribute.
type Opposition struct {
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
	ResolvedAt             *time.Time       `json:"resolvedAt,omitempty"`
	ProposedCoveredSurface *float64         `json:"proposedCoveredSurface,omitempty"`
	ProposedOtherServices  *string          `json:"proposedOtherServices,omitempty"`
	ReviewedBy             *string          `json:"reviewedBy,omitempty"`
	ReviewNotes            *string          `json:"reviewNotes,omitempty"`
	Reason                 string           `json:"reason"`
	SubmittedBy            string           `json:"submittedBy"`
	Status                 OppositionStatus `json:"status"`
	ProposedServices       []string         `json:"proposedServices,omitempty"`
	ID                     int64            `json:"id"`
	PropertyID             int64            `json:"propertyId"`
}

// HasProposal reports whether at least one attribute change is proposed.
func (o *Opposition) HasProposal() bool {
	return o.ProposedCoveredSurface != nil || o.ProposedServices != nil || o.ProposedOtherServices != nil
}

// OppositionPatch is a partial update of an opposition.
// ExpectedStatus turns the update into a compare-and-set on the current status.
type OppositionPatch struct {
	Status         *OppositionStatus
	ReviewedBy     *string
	ReviewNotes    *string
	ResolvedAt     *time.Time
	ClearReview    bool
	ExpectedStatus *OppositionStatus
}

// OppositionFilter narrows opposition listings. Zero values mean "any".
type OppositionFilter struct {
	Status      OppositionStatus
	PropertyID  int64
	SubmittedBy string
	Limit       int
	Offset      int
}
