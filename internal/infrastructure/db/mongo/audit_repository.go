package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/biblioteca/lending-platform/internal/core/domain"
)

const auditCollection = "audit_entries"

// topActionsLimit bounds the "top actions" aggregate.
const topActionsLimit = 10

// AuditRepository persists the append-only audit trail in MongoDB. Only
// Append and DeleteOlderThan write; there is no update path at all.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type mongoAuditEntry struct {
	ID              string         `bson:"_id"`
	ActorID         string         `bson:"actor_id"`
	ActorEmail      string         `bson:"actor_email,omitempty"`
	ActorRole       string         `bson:"actor_role,omitempty"`
	Action          string         `bson:"action"`
	ResourceType    string         `bson:"resource_type"`
	ResourceID      string         `bson:"resource_id,omitempty"`
	TargetSubjectID string         `bson:"target_subject_id,omitempty"`
	Details         map[string]any `bson:"details,omitempty"`
	Origin          string         `bson:"origin,omitempty"`
	UserAgent       string         `bson:"user_agent,omitempty"`
	Timestamp       time.Time      `bson:"timestamp"`
	Severity        string         `bson:"severity"`
	Success         bool           `bson:"success"`
	ErrorMessage    string         `bson:"error_message,omitempty"`
}

func toMongoEntry(e domain.AuditEntry) mongoAuditEntry {
	return mongoAuditEntry{
		ID:              e.ID,
		ActorID:         e.ActorID,
		ActorEmail:      e.ActorEmail,
		ActorRole:       e.ActorRole,
		Action:          e.Action,
		ResourceType:    e.ResourceType,
		ResourceID:      e.ResourceID,
		TargetSubjectID: e.TargetSubjectID,
		Details:         e.Details,
		Origin:          e.Origin,
		UserAgent:       e.UserAgent,
		Timestamp:       e.Timestamp.UTC(),
		Severity:        string(e.Severity),
		Success:         e.Success,
		ErrorMessage:    e.ErrorMessage,
	}
}

func (me mongoAuditEntry) toDomain() domain.AuditEntry {
	return domain.AuditEntry{
		ID:              me.ID,
		ActorID:         me.ActorID,
		ActorEmail:      me.ActorEmail,
		ActorRole:       me.ActorRole,
		Action:          me.Action,
		ResourceType:    me.ResourceType,
		ResourceID:      me.ResourceID,
		TargetSubjectID: me.TargetSubjectID,
		Details:         me.Details,
		Origin:          me.Origin,
		UserAgent:       me.UserAgent,
		Timestamp:       me.Timestamp,
		Severity:        domain.Severity(me.Severity),
		Success:         me.Success,
		ErrorMessage:    me.ErrorMessage,
	}
}

func (r *AuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	if _, err := r.coll.InsertOne(ctx, toMongoEntry(e)); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) Find(ctx context.Context, f domain.AuditFilter, p domain.Pagination) ([]domain.AuditEntry, int64, error) {
	filter := buildFilter(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(p.Offset())).
		SetLimit(int64(p.PerPage))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find audit entries: %w", err)
	}
	defer cur.Close(ctx)

	var entries []domain.AuditEntry
	for cur.Next(ctx) {
		var me mongoAuditEntry
		if err := cur.Decode(&me); err != nil {
			return nil, 0, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, me.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, total, nil
}

// Stats runs a single $facet aggregation: totals and success split, counts
// by severity, and the most frequent actions.
func (r *AuditRepository) Stats(ctx context.Context, f domain.AuditFilter) (domain.AuditStats, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: buildFilter(f)}},
		bson.D{{Key: "$facet", Value: bson.M{
			"outcome": mongo.Pipeline{
				bson.D{{Key: "$group", Value: bson.M{
					"_id":   "$success",
					"count": bson.M{"$sum": 1},
				}}},
			},
			"severity": mongo.Pipeline{
				bson.D{{Key: "$group", Value: bson.M{
					"_id":   "$severity",
					"count": bson.M{"$sum": 1},
				}}},
			},
			"actions": mongo.Pipeline{
				bson.D{{Key: "$group", Value: bson.M{
					"_id":   "$action",
					"count": bson.M{"$sum": 1},
				}}},
				bson.D{{Key: "$sort", Value: bson.M{"count": -1}}},
				bson.D{{Key: "$limit", Value: topActionsLimit}},
			},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.AuditStats{}, fmt.Errorf("aggregate audit stats: %w", err)
	}
	defer cur.Close(ctx)

	var results []struct {
		Outcome []struct {
			ID    bool  `bson:"_id"`
			Count int64 `bson:"count"`
		} `bson:"outcome"`
		Severity []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"severity"`
		Actions []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"actions"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return domain.AuditStats{}, fmt.Errorf("decode audit stats: %w", err)
	}

	stats := domain.AuditStats{BySeverity: map[domain.Severity]int64{}}
	if len(results) == 0 {
		return stats, nil
	}
	for _, o := range results[0].Outcome {
		if o.ID {
			stats.Succeeded = o.Count
		} else {
			stats.Failed = o.Count
		}
	}
	stats.Total = stats.Succeeded + stats.Failed
	for _, s := range results[0].Severity {
		stats.BySeverity[domain.Severity(s.ID)] = s.Count
	}
	for _, a := range results[0].Actions {
		stats.TopActions = append(stats.TopActions, domain.ActionCount{Action: a.ID, Count: a.Count})
	}
	return stats, nil
}

func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("delete old audit entries: %w", err)
	}
	return res.DeletedCount, nil
}

func buildFilter(f domain.AuditFilter) bson.M {
	filter := bson.M{}
	if f.ActorID != "" {
		filter["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.ResourceType != "" {
		filter["resource_type"] = f.ResourceType
	}
	if f.Severity != "" {
		filter["severity"] = string(f.Severity)
	}
	if f.Success != nil {
		filter["success"] = *f.Success
	}
	ts := bson.M{}
	if !f.From.IsZero() {
		ts["$gte"] = f.From.UTC()
	}
	if !f.To.IsZero() {
		ts["$lte"] = f.To.UTC()
	}
	if len(ts) > 0 {
		filter["timestamp"] = ts
	}
	return filter
}
