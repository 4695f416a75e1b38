package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"commentsync/internal/attach"
	"commentsync/internal/config"
	"commentsync/internal/delivery"
	"commentsync/internal/domain"
	"commentsync/internal/export"
	"commentsync/internal/ingest"
	"commentsync/internal/store"
	"commentsync/internal/transport"
	"commentsync/internal/warehouse"
)

// Application wires config to the sync and delivery components. All state
// is scoped to one run; connections open on entry and close on exit.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance tagged with a fresh run id.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = slog.Default()
	}
	return &Application{
		cfg:    cfg,
		logger: baseLogger.With("run_id", uuid.NewString()),
	}
}

// RunHistoric performs a full reload: sync every work order and comment,
// regenerate the historical exports, then batch-deliver pending records.
func (a *Application) RunHistoric(ctx context.Context) error {
	recordStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	wh, err := warehouse.Open(ctx, a.cfg.Warehouse.DSN)
	if err != nil {
		return fmt.Errorf("warehouse unavailable: %w", err)
	}
	defer wh.Close()

	syncer := ingest.NewSyncer(wh, recordStore, a.resolver(), a.logger.With("component", "ingest"))

	if _, err := syncer.SyncWorkOrders(ctx, a.workOrderQuery()); err != nil {
		return err
	}
	if _, err := syncer.SyncComments(ctx, a.commentQuery(), ingest.ModeFullReload); err != nil {
		return err
	}

	if err := a.writeExports(ctx, recordStore); err != nil {
		return err
	}

	pipeline, err := a.pipeline(recordStore, domain.KindHistoric)
	if err != nil {
		return err
	}
	_, err = pipeline.DeliverBatch(ctx)
	return err
}

// RunIncremental syncs only unseen comments, then delivers every pending
// record individually.
func (a *Application) RunIncremental(ctx context.Context) error {
	recordStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	wh, err := warehouse.Open(ctx, a.cfg.Warehouse.DSN)
	if err != nil {
		return fmt.Errorf("warehouse unavailable: %w", err)
	}
	defer wh.Close()

	syncer := ingest.NewSyncer(wh, recordStore, a.resolver(), a.logger.With("component", "ingest"))

	if _, err := syncer.SyncWorkOrders(ctx, a.workOrderQuery()); err != nil {
		return err
	}
	newlySeen, err := syncer.SyncComments(ctx, a.commentQuery(), ingest.ModeIncremental)
	if err != nil {
		return err
	}
	a.logger.Info("incremental sync done", "new_comments", len(newlySeen))

	pipeline, err := a.pipeline(recordStore, domain.KindIncremental)
	if err != nil {
		return err
	}
	_, err = pipeline.DeliverEach(ctx)
	return err
}

// RunExport regenerates the historical export files from the local store
// without touching the warehouse.
func (a *Application) RunExport(ctx context.Context) error {
	recordStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	return a.writeExports(ctx, recordStore)
}

func (a *Application) openStore(ctx context.Context) (*store.SQLiteStore, error) {
	recordStore, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("local store unavailable: %w", err)
	}
	if err := recordStore.EnsureSchema(ctx); err != nil {
		_ = recordStore.Close()
		return nil, err
	}
	return recordStore, nil
}

func (a *Application) resolver() *attach.Resolver {
	fetcher := attach.NewPageFetcher(nil)
	return attach.NewResolver(a.cfg.Attachments.Dir, fetcher, a.logger.With("component", "attach"))
}

func (a *Application) pipeline(recordStore *store.SQLiteStore, kind domain.DeliveryKind) (*delivery.Pipeline, error) {
	sender, err := transport.New(transport.Options{
		Token:              a.cfg.Auth.Token,
		Timeout:            a.cfg.Transport.Timeout(),
		MaxAttempts:        a.cfg.Transport.MaxAttempts,
		BaseDelay:          a.cfg.Transport.Backoff(),
		InsecureSkipVerify: a.cfg.Transport.InsecureSkipVerify,
		Logger:             a.logger.With("component", "transport"),
	})
	if err != nil {
		return nil, err
	}

	return delivery.NewPipeline(delivery.Deps{
		Store:            recordStore,
		Sender:           sender,
		Attachments:      a.resolver(),
		Exporter:         a.exporter(),
		CommentsEndpoint: a.cfg.Endpoints.Comments,
		ImagesEndpoint:   a.cfg.Endpoints.Images,
		Kind:             kind,
		Logger:           a.logger.With("component", "delivery"),
	}), nil
}

func (a *Application) exporter() *export.Writer {
	return export.NewWriter(a.cfg.Export.Dir, a.logger.With("component", "export"))
}

func (a *Application) writeExports(ctx context.Context, recordStore *store.SQLiteStore) error {
	writer := a.exporter()

	orders, err := recordStore.WorkOrders(ctx)
	if err != nil {
		return err
	}
	if _, err := writer.WriteWorkOrders(orders); err != nil {
		return err
	}

	comments, err := recordStore.Comments(ctx)
	if err != nil {
		return err
	}
	path, err := writer.WriteHistorical(comments)
	if err != nil {
		return err
	}

	a.logger.Info("exports written", "historical", path, "work_orders", len(orders), "comments", len(comments))
	return nil
}

func (a *Application) workOrderQuery() string {
	if q := a.cfg.Warehouse.WorkOrderQuery; q != "" {
		return q
	}
	return warehouse.DefaultWorkOrderQuery
}

func (a *Application) commentQuery() string {
	if q := a.cfg.Warehouse.CommentQuery; q != "" {
		return q
	}
	return warehouse.DefaultCommentQuery
}
