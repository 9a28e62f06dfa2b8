// Package cvbench benchmarks feature-selection and data-augmentation
// pipelines for tabular classification under cross-validation.
//
// cvbench offers a scikit-learn-like API for the pieces of an experiment:
// stages that fit on a training partition and transform both partitions,
// resamplers that rebalance training data, and classifiers. The engine
// clones every component per fold so no fitted state crosses folds.
//
// # Quick Start
//
// Evaluate a pipeline with Gaussian naive Bayes under the default fold
// policy (leave-one-out below 50 samples, stratified 5-fold otherwise):
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/cvbench/dataset"
//	    "github.com/YuminosukeSato/cvbench/evaluation"
//	    "github.com/YuminosukeSato/cvbench/pipeline"
//	    "github.com/YuminosukeSato/cvbench/preprocessing"
//	    "github.com/YuminosukeSato/cvbench/sklearn/naive_bayes"
//	)
//
//	func main() {
//	    ds, err := dataset.LoadCSV("data/heart.csv", "heart", "class")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    tr := pipeline.Make(preprocessing.NewStandardScalerDefault())
//	    rs, err := evaluation.NewEngine().Evaluate(context.Background(), ds, tr, naive_bayes.NewGaussianNB(1e-9))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    mean, _ := rs.Mean("AUC")
//	    fmt.Println("AUC:", mean)
//	}
//
// # Packages
//
//   - dataset: CSV loading, label encoding, row and column selection
//   - preprocessing: imputer, variance threshold, scalers, the default steps
//   - sklearn/feature_selection: SelectKBest and SelectFdr with f_classif, chi2, relief_f, variance
//   - sklearn/decomposition: kernel PCA (linear, rbf, poly)
//   - sklearn/over_sampling: RandomOverSampler and SMOTE
//   - sklearn/linear_model, sklearn/naive_bayes, sklearn/neighbors, sklearn/svm,
//     sklearn/tree, sklearn/ensemble: classifiers
//   - sklearn/model_selection: KFold, StratifiedKFold, LeaveOneOut and the fold policy
//   - pipeline, augment: per-fold transformers
//   - evaluation: the fold engine; search: grid search over configurations
//   - cache: BadgerDB snapshot cache for transformed folds
//   - report: CSV, JSON and box plot output
//   - experiment, config, cmd/cvbench: the aug and search experiments
//   - core/model, core/parallel, pkg/errors, pkg/log: shared infrastructure
//
// # Concurrency
//
// Folds run concurrently, bounded by the engine's worker count, and so do
// configurations during a search. Results are ordered by fold and
// configuration index, and every random source is seeded explicitly, so
// repeated runs are identical.
package cvbench
