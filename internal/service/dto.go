package service

// MergeGroupRequest is the payload for creating or replacing a merge group.
// An empty ProductIDs on update removes the group.
type MergeGroupRequest struct {
	GroupKey   string   `json:"groupKey" binding:"required,max=255"`
	ProductIDs []string `json:"productIds" binding:"omitempty,dive,shopify_gid"`
}

// BulkDeleteRequest is the payload for POST /api/bundles/bulk-delete. Ids are
// validated by ValidateBulkIDs so every offending entry can be reported.
type BulkDeleteRequest struct {
	BundleIDs []string `json:"bundleIds"`
}

// MergeConfigurationResponse is one merge group as returned to the editor.
type MergeConfigurationResponse struct {
	SlotID       string   `json:"slotId"`
	PropertyName string   `json:"propertyName"`
	GroupKey     string   `json:"groupKey"`
	ProductIDs   []string `json:"productIds"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}
