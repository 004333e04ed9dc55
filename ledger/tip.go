package ledger

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/b-open-io/go-junglebus"
	"github.com/pkg/errors"
	"github.com/ttacon/chalk"
)

// TipSource reports the current chain height used to stamp anchors.
type TipSource interface {
	Height() uint32
}

// JunglebusTip polls a JungleBus server for the chain tip.
type JunglebusTip struct {
	jb     *junglebus.Client
	height atomic.Uint32
}

func NewJunglebusTip(endpoint string) (*JunglebusTip, error) {
	jb, err := junglebus.New(junglebus.WithHTTP(endpoint))
	if err != nil {
		return nil, errors.Wrap(err, "creating junglebus client")
	}
	return &JunglebusTip{jb: jb}, nil
}

func (t *JunglebusTip) Height() uint32 {
	return t.height.Load()
}

// Run refreshes the tip every interval until ctx is done.
func (t *JunglebusTip) Run(ctx context.Context, interval time.Duration) {
	t.refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.refresh(ctx)
		}
	}
}

func (t *JunglebusTip) refresh(ctx context.Context) {
	tip, err := t.jb.GetChainTip(ctx)
	if err != nil {
		log.Printf("%s[ERROR]: chain tip: %v%s", chalk.Red, err, chalk.Reset)
		return
	}
	if tip != nil {
		t.height.Store(tip.Height)
	}
}
