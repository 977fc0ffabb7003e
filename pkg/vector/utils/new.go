package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/chroma"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/inmemory"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/qdrant"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	APIKey       string
	SQLitePath   string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "sqlite-vec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.SQLitePath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.Target,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
