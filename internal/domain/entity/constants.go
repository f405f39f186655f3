package entity

// Submission review status constants
const (
	SubmissionStatusPending  = "PENDING"
	SubmissionStatusAccepted = "ACCEPTED"
	SubmissionStatusRejected = "REJECTED"
)

// Receipt status constants
const (
	ReceiptStatusPending    = "PENDING"
	ReceiptStatusGenerating = "GENERATING"
	ReceiptStatusReady      = "READY"
	ReceiptStatusFailed     = "FAILED"
)

// Flow names
const (
	FlowRegistration    = "registration"
	FlowYouthLeadership = "youth-leadership"
)

// Content kinds stored in content_documents
const (
	ContentKindTestimonial  = "testimonials"
	ContentKindMilestone    = "milestones"
	ContentKindImpactMetric = "impact-metrics"
	ContentKindPage         = "pages"
)
