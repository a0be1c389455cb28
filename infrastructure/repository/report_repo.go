package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"multiwindow-go/domain/report"
)

// ReportCollection is the collection reports are stored in.
const ReportCollection = "report"

// reportDocument is the MongoDB document structure for reports.
type reportDocument struct {
	ID            string           `bson:"_id"`
	Scenario      string           `bson:"scenario"`
	SessionID     string           `bson:"session_id"`
	Driver        string           `bson:"driver"`
	Status        string           `bson:"status"`
	StartedAt     time.Time        `bson:"started_at"`
	FinishedAt    time.Time        `bson:"finished_at"`
	StepsRun      int              `bson:"steps_run"`
	FailedStep    int              `bson:"failed_step"`
	FailedCommand string           `bson:"failed_command,omitempty"`
	ErrorKind     string           `bson:"error_kind,omitempty"`
	Error         string           `bson:"error,omitempty"`
	WaitElapsedMS int64            `bson:"wait_elapsed_ms"`
	Windows       []windowDocument `bson:"windows,omitempty"`
	Screenshots   []string         `bson:"screenshots,omitempty"`
}

// windowDocument is the MongoDB document structure for a window record.
type windowDocument struct {
	Handle string `bson:"handle"`
	State  string `bson:"state"`
}

// MongoReportRepository implements report.Repository using MongoDB.
type MongoReportRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoReportRepository creates a new MongoDB-based report repository.
func NewMongoReportRepository(db *MongoDB, logger *slog.Logger) *MongoReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoReportRepository{
		collection: db.Collection(ReportCollection),
		logger:     logger,
	}
}

// reportIndexes serve FindByScenario.
var reportIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "scenario", Value: 1}, {Key: "started_at", Value: -1}},
		Options: options.Index().SetName("scenario_started_at"),
	},
}

// EnsureIndexes creates the indexes report queries rely on. It is
// idempotent.
func (r *MongoReportRepository) EnsureIndexes(ctx context.Context) error {
	names, err := r.collection.Indexes().CreateMany(ctx, reportIndexes)
	if err != nil {
		return fmt.Errorf("failed to create report indexes: %w", err)
	}
	r.logger.Debug("Report indexes ready", "indexes", names)
	return nil
}

// Save upserts the report by ID.
func (r *MongoReportRepository) Save(ctx context.Context, rep *report.Report) error {
	if rep.ID == "" {
		return fmt.Errorf("report has no ID")
	}

	doc := reportToDocument(rep)
	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.Debug("Report saved", "id", rep.ID, "scenario", rep.Scenario, "status", rep.Status)
	return nil
}

// FindByID retrieves a report by its identifier.
func (r *MongoReportRepository) FindByID(ctx context.Context, id string) (*report.Report, error) {
	var doc reportDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, report.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return documentToReport(&doc), nil
}

// FindByScenario retrieves the latest reports of a scenario, newest first.
func (r *MongoReportRepository) FindByScenario(ctx context.Context, scenario string, limit int) ([]*report.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"scenario": scenario}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reports: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	reports := make([]*report.Report, len(docs))
	for i := range docs {
		reports[i] = documentToReport(&docs[i])
	}
	return reports, nil
}

// documentToReport converts a MongoDB document to a domain Report.
func documentToReport(doc *reportDocument) *report.Report {
	rep := &report.Report{
		ID:            doc.ID,
		Scenario:      doc.Scenario,
		SessionID:     doc.SessionID,
		Driver:        doc.Driver,
		Status:        report.Status(doc.Status),
		StartedAt:     doc.StartedAt,
		FinishedAt:    doc.FinishedAt,
		StepsRun:      doc.StepsRun,
		FailedStep:    doc.FailedStep,
		FailedCommand: doc.FailedCommand,
		ErrorKind:     report.ErrorKind(doc.ErrorKind),
		Error:         doc.Error,
		WaitElapsed:   time.Duration(doc.WaitElapsedMS) * time.Millisecond,
	}

	if len(doc.Windows) > 0 {
		rep.Windows = make([]report.WindowRecord, len(doc.Windows))
		for i, w := range doc.Windows {
			rep.Windows[i] = report.WindowRecord{Handle: w.Handle, State: w.State}
		}
	}
	if len(doc.Screenshots) > 0 {
		rep.Screenshots = append([]string(nil), doc.Screenshots...)
	}

	return rep
}

// reportToDocument converts a domain Report to a MongoDB document.
func reportToDocument(rep *report.Report) *reportDocument {
	doc := &reportDocument{
		ID:            rep.ID,
		Scenario:      rep.Scenario,
		SessionID:     rep.SessionID,
		Driver:        rep.Driver,
		Status:        string(rep.Status),
		StartedAt:     rep.StartedAt.UTC(),
		FinishedAt:    rep.FinishedAt.UTC(),
		StepsRun:      rep.StepsRun,
		FailedStep:    rep.FailedStep,
		FailedCommand: rep.FailedCommand,
		ErrorKind:     string(rep.ErrorKind),
		Error:         rep.Error,
		WaitElapsedMS: rep.WaitElapsed.Milliseconds(),
		Screenshots:   rep.Screenshots,
	}

	if len(rep.Windows) > 0 {
		doc.Windows = make([]windowDocument, len(rep.Windows))
		for i, w := range rep.Windows {
			doc.Windows[i] = windowDocument{Handle: w.Handle, State: w.State}
		}
	}

	return doc
}

var _ report.Repository = (*MongoReportRepository)(nil)
