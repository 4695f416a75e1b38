package domain

import "fmt"

// Status is the two-state delivery-confirmation marker on a Comment.
type Status string

const (
	// StatusPending marks a comment not yet confirmed delivered.
	StatusPending Status = "pending"
	// StatusSuccess marks a comment whose payload and every attachment reached the endpoint.
	StatusSuccess Status = "success"
)

// DeliveryKind tags outgoing payloads with the run flavor they belong to.
type DeliveryKind string

const (
	KindHistoric    DeliveryKind = "historico"
	KindIncremental DeliveryKind = "temp"
)

// WorkOrder is the external grouping entity (OT) that comments belong to.
// Identified by the fingerprint of its two external identifiers; inserted
// once, never mutated.
type WorkOrder struct {
	ID              int64  `json:"ID"`
	ActivityID      int64  `json:"ACTIVITY_ID"`
	WorkOrderNumber string `json:"SAP_WORK_NUMBER"`
	Fingerprint     string `json:"MD5"`
}

// Comment is one maintainer comment pulled from the warehouse. The external
// id is authoritative; the fingerprint only links the comment to its work
// order. JSON tags match the export/endpoint contract.
type Comment struct {
	ID                  int64  `json:"ID"`
	ActivityID          int64  `json:"ACTIVITY_ID"`
	WorkOrderNumber     string `json:"SAP_WORK_NUMBER"`
	RoleName            string `json:"ROLE_NAME"`
	WorkSequenceName    string `json:"WORK_SEQUENCE_NAME"`
	ElementStep         int64  `json:"ELEMENT_STEP"`
	ElementInstanceName string `json:"ELEMENT_INSTANCE_NAME"`
	Suffix              string `json:"SUFFIX"`
	Title               string `json:"COMMENT_TITLE"`
	Description         string `json:"COMMENT_DESCRIPTION"`
	LocationURLs        string `json:"LOCATION_URLS"`
	UsedFor             string `json:"COMMENT_USED_FOR"`
	CreatedDate         string `json:"CREATED_DATE"`
	Fingerprint         string `json:"MD5"`

	// AttachmentURLs is the location list parsed at the sync boundary,
	// persisted so delivery never has to probe filenames.
	AttachmentURLs []string `json:"-"`
	Status         Status   `json:"-"`
}

// AttachmentFileName builds the local file name for the n-th (1-based)
// attachment of a comment. Presence of this file marks the attachment as
// already resolved.
func AttachmentFileName(commentID int64, n int) string {
	return fmt.Sprintf("%d_%d.jpg", commentID, n)
}
