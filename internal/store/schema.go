package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table layouts. Timestamps are stored as Unix nanoseconds and structured
// payloads as JSON text.
var (
	learnerColumns = []*schema.Column{
		{Name: "learner_id", Type: field.TypeString},
		{Name: "xp", Type: field.TypeInt},
		{Name: "data", Type: field.TypeString, Size: 1 << 20},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	learnersTable = &schema.Table{
		Name:       "learners",
		Columns:    learnerColumns,
		PrimaryKey: []*schema.Column{learnerColumns[0]},
	}

	eventColumns = []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "learner_id", Type: field.TypeString},
		{Name: "type", Type: field.TypeString},
		{Name: "roadmap_id", Type: field.TypeString, Nullable: true},
		{Name: "node_id", Type: field.TypeString, Nullable: true},
		{Name: "score", Type: field.TypeInt, Nullable: true},
		{Name: "xp", Type: field.TypeInt, Default: 0},
		{Name: "data", Type: field.TypeString, Nullable: true, Size: 1 << 16},
		{Name: "at", Type: field.TypeInt64},
	}
	eventsTable = &schema.Table{
		Name:       "events",
		Columns:    eventColumns,
		PrimaryKey: []*schema.Column{eventColumns[0]},
		Indexes: []*schema.Index{
			{Name: "event_learner_id", Columns: []*schema.Column{eventColumns[1]}},
		},
	}

	submissionColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "roadmap_id", Type: field.TypeString},
		{Name: "node_id", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 1 << 20},
		{Name: "file_name", Type: field.TypeString, Nullable: true},
		{Name: "status", Type: field.TypeString},
		{Name: "submitted_at", Type: field.TypeInt64},
	}
	submissionsTable = &schema.Table{
		Name:       "submissions",
		Columns:    submissionColumns,
		PrimaryKey: []*schema.Column{submissionColumns[0]},
		Indexes: []*schema.Index{
			{Name: "submission_owner_id", Columns: []*schema.Column{submissionColumns[1]}},
		},
	}

	evaluationColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "submission_id", Type: field.TypeString},
		{Name: "evaluator_id", Type: field.TypeString},
		{Name: "owner_id", Type: field.TypeString},
		{Name: "score", Type: field.TypeInt},
		{Name: "feedback", Type: field.TypeString, Size: 1 << 16},
		{Name: "criteria", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
	}
	evaluationsTable = &schema.Table{
		Name:       "evaluations",
		Columns:    evaluationColumns,
		PrimaryKey: []*schema.Column{evaluationColumns[0]},
		Indexes: []*schema.Index{
			{Name: "evaluation_submission_evaluator", Unique: true, Columns: []*schema.Column{evaluationColumns[1], evaluationColumns[2]}},
		},
	}

	certificateColumns = []*schema.Column{
		{Name: "serial", Type: field.TypeString},
		{Name: "learner_id", Type: field.TypeString},
		{Name: "roadmap_id", Type: field.TypeString},
		{Name: "policy", Type: field.TypeString},
		{Name: "grade", Type: field.TypeInt, Nullable: true},
		{Name: "issued_at", Type: field.TypeInt64},
	}
	certificatesTable = &schema.Table{
		Name:       "certificates",
		Columns:    certificateColumns,
		PrimaryKey: []*schema.Column{certificateColumns[0]},
		Indexes: []*schema.Index{
			{Name: "certificate_learner_roadmap", Unique: true, Columns: []*schema.Column{certificateColumns[1], certificateColumns[2]}},
		},
	}

	llmRequestColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Nullable: true},
		{Name: "at", Type: field.TypeInt64},
	}
	llmRequestsTable = &schema.Table{
		Name:       "llm_requests",
		Columns:    llmRequestColumns,
		PrimaryKey: []*schema.Column{llmRequestColumns[0]},
	}

	tables = []*schema.Table{
		learnersTable,
		eventsTable,
		submissionsTable,
		evaluationsTable,
		certificatesTable,
		llmRequestsTable,
	}
)
