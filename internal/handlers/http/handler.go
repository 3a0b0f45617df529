// Package http is the external HTTP surface: WooCommerce webhooks, job
// status polling and manual sync triggers.
package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/sync/catalog"
	orderSync "WooWithBizimHesap/internal/sync/order"
	"WooWithBizimHesap/internal/telegram"
	"WooWithBizimHesap/internal/version"
	"WooWithBizimHesap/internal/worker"
	"WooWithBizimHesap/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	HeaderSignature = "X-WC-Webhook-Signature"
	HeaderTopic     = "X-WC-Webhook-Topic"

	maxBody = 10 << 20
)

type ProductSync interface {
	SyncAll(ctx context.Context) (*syncjob.Job, error)
	SyncOne(ctx context.Context, wooID int64) (*product.Product, error)
}

type OrderSync interface {
	SyncAll(ctx context.Context, maxPages int) (*syncjob.Job, error)
	SyncFromWebhook(ctx context.Context, payload []byte) (*order.Order, error)
	UpdateStatus(ctx context.Context, wooID int64, status string) (*order.Order, error)
}

type Catalog interface {
	Fetch(ctx context.Context, opts catalog.ImportOptions) (*syncjob.Job, *catalog.ImportSummary, error)
	PushIDs(ctx context.Context, ids []int64) (*syncjob.Job, error)
	PushPending(ctx context.Context) (*syncjob.Job, error)
	EnqueuePush(ctx context.Context, ids []int64) (*syncjob.Job, error)
}

type Jobs interface {
	Get(ctx context.Context, id int64) (*syncjob.Job, error)
	List(ctx context.Context, jobType string, limit int) ([]syncjob.Job, error)
}

// Submitter runs work in the background; *worker.Pool satisfies it.
type Submitter interface {
	Submit(task worker.Task)
}

type Options struct {
	WebhookSecret string
	OrderPages    int
}

type Handler struct {
	products ProductSync
	orders   OrderSync
	catalog  Catalog
	jobs     Jobs
	pool     Submitter
	notifier telegram.Notifier
	opts     Options
	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(products ProductSync, orders OrderSync, cat Catalog, jobs Jobs, pool Submitter,
	notifier telegram.Notifier, opts Options, logger *logging.Logger) *Handler {
	if notifier == nil {
		notifier = telegram.Noop{}
	}
	return &Handler{
		products: products,
		orders:   orders,
		catalog:  cat,
		jobs:     jobs,
		pool:     pool,
		notifier: notifier,
		opts:     opts,
		validate: validator.New(),
		logger:   logger.WithField("component", "http"),
	}
}

// Router wires every route and counts requests per route.
func (h *Handler) Router() http.Handler {
	router := httprouter.New()
	handle := func(method, path string, fn httprouter.Handle) {
		router.Handle(method, path, h.counted(path, fn))
	}

	handle(http.MethodGet, "/", h.Version)
	handle(http.MethodPost, "/webhook/woocommerce", h.Webhook)
	handle(http.MethodGet, "/jobs", h.ListJobs)
	handle(http.MethodGet, "/jobs/:id", h.GetJob)
	handle(http.MethodPost, "/orders/:id/status", h.UpdateOrderStatus)
	handle(http.MethodPost, "/sync/products", h.SyncProducts)
	handle(http.MethodPost, "/sync/orders", h.SyncOrders)
	handle(http.MethodPost, "/sync/catalog/fetch", h.CatalogFetch)
	handle(http.MethodPost, "/sync/catalog/push", h.CatalogPush)
	handle(http.MethodPost, "/sync/catalog/push-pending", h.CatalogPushPending)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) counted(path string, fn httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r, ps)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("failed to send response, error: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if _, err := fmt.Fprintf(w, "Version %s", version.GetVersion().String()); err != nil {
		h.logger.Errorf("failed to send response, error: %v", err)
	}
}

// Sign is the WooCommerce webhook signature of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Webhook verifies the delivery and queues it by topic. Order deliveries go
// to the order engine, product deliveries re-sync that product. Without a
// configured secret every delivery but the ping is refused.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.logger.Debug("Start Webhook")
	defer h.logger.Debug("End Webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	// WooCommerce pings a new webhook with a form body and no signature.
	if bytes.HasPrefix(body, []byte("webhook_id=")) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
		return
	}
	if h.opts.WebhookSecret == "" {
		h.logger.Error("webhook refused, WEBHOOK.Secret is not set")
		h.writeError(w, http.StatusServiceUnavailable, "webhook secret not configured")
		return
	}
	given := r.Header.Get(HeaderSignature)
	if given == "" || !hmac.Equal([]byte(given), []byte(Sign(h.opts.WebhookSecret, body))) {
		h.logger.Warnf("webhook with bad signature from %s", r.RemoteAddr)
		h.writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	topic := r.Header.Get(HeaderTopic)
	log := h.logger.WithField("topic", topic)
	switch {
	case strings.HasSuffix(topic, ".deleted"), strings.HasSuffix(topic, ".restored"):
		log.Info("webhook topic ignored")
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case strings.HasPrefix(topic, "order."):
		h.pool.Submit(func(ctx context.Context) error {
			o, err := h.orders.SyncFromWebhook(ctx, body)
			if err != nil {
				h.alert(ctx, fmt.Sprintf("order webhook %s failed: %v", topic, err))
				return err
			}
			log.WithField("order_id", o.WooID).Info("order webhook stored")
			return nil
		})
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case strings.HasPrefix(topic, "product."):
		var ref struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(body, &ref); err != nil || ref.ID <= 0 {
			h.writeError(w, http.StatusBadRequest, "product id missing")
			return
		}
		h.pool.Submit(func(ctx context.Context) error {
			if _, err := h.products.SyncOne(ctx, ref.ID); err != nil {
				h.alert(ctx, fmt.Sprintf("product webhook %s for %d failed: %v", topic, ref.ID, err))
				return err
			}
			return nil
		})
		h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	default:
		log.Info("webhook topic not handled")
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *Handler) alert(ctx context.Context, msg string) {
	h.logger.Error(msg)
	h.notifier.Notify(ctx, msg)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "bad job id")
		return
	}
	job, err := h.jobs.Get(r.Context(), id)
	if errors.Is(err, syncjob.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Errorf("failed to load job %d: %v", id, err)
		h.writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, job.Report())
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing on-hold completed cancelled refunded failed"`
}

// UpdateOrderStatus sets the order status in WooCommerce and answers with
// the order as stored after the re-sync.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "bad order id")
		return
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.WithField("order_id", id).Errorf("status update failed: %v", err)
		h.writeError(w, errorStatus(err), err.Error())
		return
	}
	if o == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

// errorStatus answers a failed remote call with 503 when a retry may succeed
// and 502 when it will not.
func errorStatus(err error) int {
	if mapping.IsParseError(err) {
		return http.StatusBadRequest
	}
	if errors.Is(err, orderSync.ErrStatusRefused) {
		return http.StatusBadGateway
	}
	if ge, ok := gateway.AsError(err); ok {
		if ge.Temporary() {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	list, err := h.jobs.List(r.Context(), q.Get("type"), limit)
	if err != nil {
		h.logger.Errorf("failed to list jobs: %v", err)
		h.writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	out := make([]syncjob.Report, 0, len(list))
	for i := range list {
		out = append(out, list[i].Report())
	}
	h.writeJSON(w, http.StatusOK, out)
}

// background runs a full pass on the pool; its outcome lands in the job
// ledger and, on failure, in the operator chat.
func (h *Handler) background(w http.ResponseWriter, name string, pass func(context.Context) (*syncjob.Job, error)) {
	h.pool.Submit(func(ctx context.Context) error {
		if _, err := pass(ctx); err != nil {
			h.alert(ctx, fmt.Sprintf("%s sync failed: %v", name, err))
			return err
		}
		return nil
	})
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "sync_type": name})
}

func (h *Handler) SyncProducts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	h.background(w, syncjob.TypeProducts, h.products.SyncAll)
}

func (h *Handler) SyncOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pages := h.opts.OrderPages
	if v, err := strconv.Atoi(r.URL.Query().Get("pages")); err == nil && v > 0 {
		pages = v
	}
	h.background(w, syncjob.TypeOrders, func(ctx context.Context) (*syncjob.Job, error) {
		return h.orders.SyncAll(ctx, pages)
	})
}

type fetchRequest struct {
	Offset int  `json:"offset" validate:"gte=0"`
	Limit  int  `json:"limit" validate:"gte=0"`
	DryRun bool `json:"dry_run"`
}

type pushRequest struct {
	IDs   []int64 `json:"ids" validate:"omitempty,dive,gt=0"`
	Async bool    `json:"async"`
}

// decode reads an optional JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return err
		}
	}
	return h.validate.Struct(v)
}

func (h *Handler) CatalogFetch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req fetchRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, summary, err := h.catalog.Fetch(r.Context(), catalog.ImportOptions{Offset: req.Offset, Limit: req.Limit, DryRun: req.DryRun})
	if err != nil && job == nil {
		h.logger.Errorf("catalog fetch: %v", err)
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if job == nil {
		h.writeError(w, http.StatusConflict, "catalog fetch already running")
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, map[string]interface{}{"job": job.Report(), "summary": summary})
}

func (h *Handler) CatalogPush(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req pushRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.IDs) == 0 {
		h.writeError(w, http.StatusBadRequest, "ids required")
		return
	}
	h.push(w, r, req.Async, req.IDs)
}

func (h *Handler) CatalogPushPending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req pushRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.push(w, r, req.Async, nil)
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request, async bool, ids []int64) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	var (
		job *syncjob.Job
		err error
	)
	switch {
	case async:
		job, err = h.catalog.EnqueuePush(ctx, ids)
	case len(ids) > 0:
		job, err = h.catalog.PushIDs(ctx, ids)
	default:
		job, err = h.catalog.PushPending(ctx)
	}
	if err != nil {
		h.logger.Errorf("catalog push: %v", err)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if async {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, job.Report())
}
