// Package service orchestrates the indexing pipeline: adapters normalize
// raw payloads, the store caches them, and the conversation graph plus
// flattener turn them into render-ready trees.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/raphaelgruber/chattree-go/internal/graph"
	"github.com/raphaelgruber/chattree-go/internal/metrics"
	"github.com/raphaelgruber/chattree-go/internal/models"
	"github.com/raphaelgruber/chattree-go/internal/source"
	"github.com/raphaelgruber/chattree-go/internal/store"
	"github.com/raphaelgruber/chattree-go/internal/tree"
)

// Indexer owns one conversation graph per index session and coordinates
// imports, rebuilds and tree builds. The graph itself provides no mutual
// exclusion; the indexer guards it with mu (writes during imports and
// the rebuild swap, read locks for flatten/validate/stats) and
// serializes rebuilds through a single-flight group so rapid refresh
// requests coalesce instead of queueing.
type Indexer struct {
	store    *store.Store
	registry *source.Registry
	metrics  *metrics.Collector
	logger   *slog.Logger

	mu     sync.RWMutex
	graph  *graph.ConversationGraph
	flight singleflight.Group
}

// New creates an indexer with a fresh, empty graph.
func New(st *store.Store, registry *source.Registry, mc *metrics.Collector, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.NewCollector()
	}
	return &Indexer{
		store:    st,
		registry: registry,
		metrics:  mc,
		logger:   logger,
		graph:    graph.New(logger),
	}
}

// Graph returns the current graph for read-only inspection. The result
// is only safe to read while no import or rebuild runs concurrently;
// concurrent callers go through BuildTree, Validate or GraphStats,
// which lock internally.
func (ix *Indexer) Graph() *graph.ConversationGraph {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph
}

// GraphStats is a point-in-time summary of the graph's size.
type GraphStats struct {
	Nodes         int `json:"nodes"`
	SharedNodes   int `json:"shared_nodes"`
	Conversations int `json:"conversations"`
	EditGroups    int `json:"edit_groups"`
}

// GraphStats reads the summary counters under the read lock.
func (ix *Indexer) GraphStats() GraphStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return GraphStats{
		Nodes:         ix.graph.NodeCount(),
		SharedNodes:   ix.graph.SharedCount(),
		Conversations: len(ix.graph.ConversationIDs()),
		EditGroups:    ix.graph.EditGroupCount(),
	}
}

// Metrics exposes the collector.
func (ix *Indexer) Metrics() *metrics.Collector {
	return ix.metrics
}

// ResolvedURL identifies the platform behind a conversation URL.
type ResolvedURL struct {
	Platform             string `json:"platform"`
	ConversationID       string `json:"conversation_id"`
	SupportsEditVersions bool   `json:"supports_edit_versions"`
	SupportsBranching    bool   `json:"supports_branching"`
}

// ResolveURL matches a conversation URL against the registered platform
// adapters and extracts the conversation id.
func (ix *Indexer) ResolveURL(url string) (ResolvedURL, error) {
	adapter, err := ix.registry.ByURL(url)
	if err != nil {
		return ResolvedURL{}, fmt.Errorf("resolve %q: %w", url, err)
	}
	return ResolvedURL{
		Platform:             adapter.Platform(),
		ConversationID:       adapter.ConversationID(url),
		SupportsEditVersions: adapter.SupportsEditVersions(),
		SupportsBranching:    adapter.SupportsBranching(),
	}, nil
}

// Platforms lists the platform names the registry supports.
func (ix *Indexer) Platforms() []string {
	return ix.registry.Platforms()
}

// ImportResult summarizes one imported conversation.
type ImportResult struct {
	Platform       string `json:"platform"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title,omitempty"`
	Messages       int    `json:"messages"`
	Skipped        int    `json:"skipped"`
}

// ImportPayload normalizes a raw conversation payload, caches the result
// in the store and indexes it into the graph. conversationID may be
// empty when the payload itself carries one (adapters that cannot supply
// it make the argument mandatory).
func (ix *Indexer) ImportPayload(ctx context.Context, platform, conversationID string, raw []byte) (ImportResult, error) {
	adapter, err := ix.registry.ByPlatform(platform)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	start := time.Now()
	msgs, err := adapter.Normalize(raw)
	if err != nil {
		return ImportResult{}, fmt.Errorf("normalize %s payload: %w", platform, err)
	}
	ix.metrics.RecordItems(metrics.OpNormalize, time.Since(start), len(msgs))

	if conversationID == "" {
		conversationID = payloadConversationID(platform, raw)
	}
	if conversationID == "" {
		return ImportResult{}, fmt.Errorf("import: conversation id required for %s payloads", platform)
	}

	title := payloadTitle(platform, raw)

	putStart := time.Now()
	err = ix.store.CacheConversation(store.CachedConversation{
		Platform:       platform,
		ConversationID: conversationID,
		Title:          title,
		Messages:       msgs,
	})
	ix.metrics.RecordTiming(metrics.OpStorePut, time.Since(putStart))
	if err != nil {
		return ImportResult{}, fmt.Errorf("cache conversation %s: %w", conversationID, err)
	}
	if title != "" {
		if err := ix.store.SetTitle(conversationID, title); err != nil {
			ix.logger.Warn("failed to store title", "conversation", conversationID, "error", err)
		}
	}

	ix.mu.Lock()
	result := ix.indexMessages(ix.graph, conversationID, platform, title, msgs)
	ix.mu.Unlock()
	ix.logger.Info("conversation imported",
		"platform", platform,
		"conversation", conversationID,
		"messages", result.Messages,
		"skipped", result.Skipped,
	)
	return result, nil
}

// indexMessages feeds normalized messages into g in their given
// (parent-first) order, runs edit-group detection and stores the
// conversation's resolved main path. Callers writing to the shared
// graph hold ix.mu; rebuilds pass their private graph instead.
func (ix *Indexer) indexMessages(g *graph.ConversationGraph, conversationID, platform, title string, msgs []models.Message) ImportResult {
	start := time.Now()

	added := 0
	skipped := 0
	for _, msg := range msgs {
		if node := g.AddMessage(msg, conversationID); node == nil {
			skipped++
			continue
		}
		added++
	}

	g.ProcessEditVersions(msgs, platform)
	g.SetConversationPath(conversationID, mainPath(msgs), graph.ConversationMeta{
		Title:    title,
		Platform: platform,
	})

	ix.metrics.RecordItems(metrics.OpGraphBuild, time.Since(start), added)
	return ImportResult{
		Platform:       platform,
		ConversationID: conversationID,
		Title:          title,
		Messages:       added,
		Skipped:        skipped,
	}
}

// mainPath resolves the linear root-to-leaf path through a conversation's
// messages. Where a parent has several children (edit versions), the
// child with the latest create time wins, matching which version the
// platforms display; ties fall back to the larger id for determinism.
func mainPath(msgs []models.Message) []string {
	if len(msgs) == 0 {
		return nil
	}

	byID := make(map[string]models.Message, len(msgs))
	children := make(map[string][]string, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		byID[msg.ID] = msg
		if msg.ParentID != "" {
			children[msg.ParentID] = append(children[msg.ParentID], msg.ID)
		}
	}

	// Root: first message whose parent is absent from this batch.
	root := ""
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if msg.ParentID == "" {
			root = msg.ID
			break
		}
		if _, ok := byID[msg.ParentID]; !ok {
			root = msg.ID
			break
		}
	}
	if root == "" {
		return nil
	}

	var path []string
	visited := make(map[string]struct{}, len(byID))
	for id := root; id != ""; {
		if _, ok := visited[id]; ok {
			// Defensive stop; Validate reports the cycle.
			break
		}
		visited[id] = struct{}{}
		path = append(path, id)
		id = pickChild(byID, children[id])
	}
	return path
}

func pickChild(byID map[string]models.Message, candidates []string) string {
	best := ""
	bestTime := -1.0
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, id := range sorted {
		msg, ok := byID[id]
		if !ok {
			continue
		}
		t := tree.ToSeconds(msg.CreateTime)
		if t >= bestTime {
			best = id
			bestTime = t
		}
	}
	return best
}

// BuildTree flattens and annotates the tree for a conversation using the
// current graph and the persisted branch data.
func (ix *Indexer) BuildTree(conversationID string) ([]*models.DisplayNode, error) {
	getStart := time.Now()
	data, err := ix.store.LoadBranchData()
	ix.metrics.RecordTiming(metrics.OpStoreGet, time.Since(getStart))
	if err != nil {
		return nil, fmt.Errorf("load branch data: %w", err)
	}

	flattenStart := time.Now()
	ix.mu.RLock()
	nodes := tree.BuildTreeFromGraph(ix.graph, conversationID, data)
	ix.mu.RUnlock()
	ix.metrics.RecordItems(metrics.OpFlatten, time.Since(flattenStart), len(nodes))

	annotateStart := time.Now()
	tree.MarkTerminalNodes(nodes)
	tree.AnnotateContextContinuations(nodes)
	ix.metrics.RecordItems(metrics.OpAnnotate, time.Since(annotateStart), len(nodes))

	return nodes, nil
}

// Rebuild reconstructs the graph from every cached conversation.
// Concurrent calls coalesce: while one rebuild is in flight, further
// requests share its result instead of starting their own.
func (ix *Indexer) Rebuild(ctx context.Context) error {
	_, err, _ := ix.flight.Do("rebuild", func() (any, error) {
		return nil, ix.rebuild(ctx)
	})
	return err
}

func (ix *Indexer) rebuild(ctx context.Context) error {
	getStart := time.Now()
	convs, err := ix.store.CachedConversations()
	ix.metrics.RecordTiming(metrics.OpStoreGet, time.Since(getStart))
	if err != nil {
		return fmt.Errorf("load cached conversations: %w", err)
	}

	// Build the replacement completely before publishing it: readers
	// must never observe a partially indexed graph.
	fresh := graph.New(ix.logger)
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return err
		}
		ix.indexMessages(fresh, conv.ConversationID, conv.Platform, conv.Title, conv.Messages)
	}

	ix.mu.Lock()
	ix.graph = fresh
	ix.mu.Unlock()

	ix.logger.Info("graph rebuilt",
		"conversations", len(convs),
		"nodes", fresh.NodeCount(),
		"shared", fresh.SharedCount(),
	)
	return nil
}

// BranchData returns the persisted external branch records.
func (ix *Indexer) BranchData() (*models.BranchData, error) {
	start := time.Now()
	data, err := ix.store.LoadBranchData()
	ix.metrics.RecordTiming(metrics.OpStoreGet, time.Since(start))
	return data, err
}

// AddBranch records that childID was spawned from a message in the
// parent conversation.
func (ix *Indexer) AddBranch(parentConversationID string, rec models.BranchRecord) error {
	start := time.Now()
	err := ix.store.AddBranch(parentConversationID, rec)
	ix.metrics.RecordTiming(metrics.OpStorePut, time.Since(start))
	return err
}

// Validate runs graph integrity validation, logging each error. The
// returned slice is empty (never nil) for a clean graph.
func (ix *Indexer) Validate() []graph.ValidationError {
	start := time.Now()
	ix.mu.RLock()
	errs := ix.graph.Validate()
	nodeCount := ix.graph.NodeCount()
	ix.mu.RUnlock()
	ix.metrics.RecordItems(metrics.OpValidate, time.Since(start), nodeCount)

	for _, e := range errs {
		ix.logger.Warn("graph integrity error", "kind", e.Kind, "node", e.NodeID, "detail", e.Detail)
	}
	if errs == nil {
		errs = []graph.ValidationError{}
	}
	return errs
}
