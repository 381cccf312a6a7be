package market

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"pricebatcher/internal/asset"
)

const providerName = "Market"

// upstreamIDs is the static allow-list mapping supported assets to upstream
// identifiers. Everything outside this table is unsupported.
// TODO: move the table to config once the on-chain side stops hard-coding
// these pairs.
var upstreamIDs = map[asset.AssetSpecifier]string{
	{Blockchain: "PENDULUM", Symbol: "PEN"}:  "pendulum-chain",
	{Blockchain: "POLKADOT", Symbol: "DOT"}:  "polkadot",
	{Blockchain: "KUSAMA", Symbol: "KSM"}:    "kusama",
	{Blockchain: "ASTAR", Symbol: "ASTR"}:    "astar",
	{Blockchain: "BIFROST", Symbol: "BNC"}:   "bifrost-native-coin",
	{Blockchain: "BIFROST", Symbol: "VDOT"}:  "voucher-dot",
	{Blockchain: "HYDRADX", Symbol: "HDX"}:   "hydradx",
	{Blockchain: "MOONBEAM", Symbol: "GLMR"}: "moonbeam",
	{Blockchain: "POLKADEX", Symbol: "PDEX"}: "polkadex",
	{Blockchain: "STELLAR", Symbol: "XLM"}:   "stellar",
}

func upstreamID(a asset.AssetSpecifier) (string, bool) {
	id, ok := upstreamIDs[asset.AssetSpecifier{
		Blockchain: strings.ToUpper(a.Blockchain),
		Symbol:     strings.ToUpper(a.Symbol),
	}]
	return id, ok
}

// Source resolves allow-listed crypto assets through one batched
// simple-price query per cycle.
type Source struct {
	client *Client
	log    *zap.Logger
}

func New(client *Client, log *zap.Logger) *Source {
	return &Source{client: client, log: log}
}

func (s *Source) Name() string { return providerName }

func (s *Source) Supports(a asset.AssetSpecifier) bool {
	_, ok := upstreamID(a)
	return ok
}

// Quote maps the assets to upstream ids, fetches them in one batch and
// reverse-maps the result rows. Ids missing from the response are dropped
// silently; a failed batch drops every asset assigned to it.
func (s *Source) Quote(ctx context.Context, assets []asset.AssetSpecifier) ([]asset.Quotation, error) {
	now := time.Now().UTC()
	assetByID := make(map[string]asset.AssetSpecifier, len(assets))
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		id, ok := upstreamID(a)
		if !ok {
			s.log.Warn("unsupported market asset", zap.String("asset", a.String()))
			continue
		}
		assetByID[id] = a
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.client.SimplePrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]asset.Quotation, 0, len(rows))
	for id, row := range rows {
		a, ok := assetByID[id]
		if !ok {
			continue
		}
		ts := now
		if row.LastUpdatedAt > 0 {
			ts = time.Unix(row.LastUpdatedAt, 0).UTC()
		}
		out = append(out, asset.Quotation{
			Symbol:     a.Symbol,
			Name:       a.Symbol,
			Blockchain: a.Blockchain,
			Price:      row.USD,
			Supply:     row.USD24hVol,
			Time:       ts,
		})
	}
	return out, nil
}
