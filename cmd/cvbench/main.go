// Command cvbench runs feature-selection and augmentation experiments under
// cross-validation.
//
//	cvbench aug -d spectf --fs f_classif --clf knn -k 10
//	cvbench search -d spectf --config experiment.yaml
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/YuminosukeSato/cvbench/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("cvbench failed", log.ErrAttr(err))
		stop()
		os.Exit(1)
	}
}
