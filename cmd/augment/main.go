// Command augment runs the full synthetic-data pipeline: load the kinetics
// CSVs, fit the shared scaler, train the generator, assemble an augmented
// table under the chosen strategy and score regression models on the blind
// set. Metrics for the real-only baseline are always printed alongside so the
// effect of augmentation is visible in one run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Noofbiz/synthKin/augment"
	"github.com/Noofbiz/synthKin/datasets"
	"github.com/Noofbiz/synthKin/gan"
	"github.com/Noofbiz/synthKin/metrics"
	"github.com/Noofbiz/synthKin/regress"
	"github.com/Noofbiz/synthKin/scale"
	"github.com/Noofbiz/synthKin/search"
)

// config carries every tunable. A YAML file can set any of them; flags set on
// the command line win over the file.
type config struct {
	Train    string `yaml:"train"`
	Blind    string `yaml:"blind"`
	Strategy string `yaml:"strategy"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	CriticIters  int     `yaml:"critic_iters"`
	GPWeight     float64 `yaml:"gp_weight"`
	LearningRate float64 `yaml:"learning_rate"`
	NoiseDim     int     `yaml:"noise_dim"`
	AuxWeight    float64 `yaml:"aux_weight"`

	Replicas  int     `yaml:"replicas"`
	Synthetic int     `yaml:"synthetic"`
	KNN       int     `yaml:"knn"`
	Jitter    float64 `yaml:"jitter"`

	Folds  int   `yaml:"folds"`
	Search bool  `yaml:"search"`
	Seed   int64 `yaml:"seed"`
}

func defaults() config {
	return config{
		Train:        "data/train.csv",
		Blind:        "data/blind.csv",
		Strategy:     "uniform",
		Epochs:       300,
		BatchSize:    32,
		CriticIters:  5,
		GPWeight:     10,
		LearningRate: 1e-4,
		NoiseDim:     16,
		AuxWeight:    0.5,
		Replicas:     3,
		Synthetic:    100,
		KNN:          8,
		Jitter:       0.02,
		Folds:        4,
		Search:       true,
		Seed:         42,
	}
}

func main() {
	cfg := defaults()

	configPath := flag.String("config", "", "YAML config file; flags set on the command line override it")
	train := flag.String("train", cfg.Train, "training CSV path")
	blind := flag.String("blind", cfg.Blind, "blind CSV path")
	strategy := flag.String("strategy", cfg.Strategy, "augmentation strategy: baseline, uniform, aux, selective, twostage, empirical")
	epochs := flag.Int("epochs", cfg.Epochs, "GAN training epochs")
	batch := flag.Int("batch", cfg.BatchSize, "GAN batch size")
	criticIters := flag.Int("critic-iters", cfg.CriticIters, "critic updates per generator update")
	gpWeight := flag.Float64("gp-weight", cfg.GPWeight, "gradient penalty weight")
	lr := flag.Float64("lr", cfg.LearningRate, "Adam learning rate for both networks")
	noiseDim := flag.Int("noise-dim", cfg.NoiseDim, "generator noise dimension")
	auxWeight := flag.Float64("aux-weight", cfg.AuxWeight, "SMAPE penalty weight for the aux strategy")
	replicas := flag.Int("replicas", cfg.Replicas, "feature replicas per selected row (selective strategy)")
	synthetic := flag.Int("synthetic", cfg.Synthetic, "synthetic row count (twostage strategy)")
	knn := flag.Int("knn", cfg.KNN, "neighbor count (empirical strategy)")
	jitter := flag.Float64("jitter", cfg.Jitter, "jitter stddev (empirical strategy)")
	folds := flag.Int("folds", cfg.Folds, "grouped cross-validation folds")
	doSearch := flag.Bool("search", cfg.Search, "cross-validate the model lineup instead of using the default forest")
	seed := flag.Int64("seed", cfg.Seed, "seed for every stochastic component")
	flag.Parse()

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("[config] read %s: %v", *configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("[config] parse %s: %v", *configPath, err)
		}
		log.Printf("[config] loaded %s", *configPath)
	}

	// Flags set explicitly on the command line win over the file.
	apply := map[string]func(){
		"train":        func() { cfg.Train = *train },
		"blind":        func() { cfg.Blind = *blind },
		"strategy":     func() { cfg.Strategy = *strategy },
		"epochs":       func() { cfg.Epochs = *epochs },
		"batch":        func() { cfg.BatchSize = *batch },
		"critic-iters": func() { cfg.CriticIters = *criticIters },
		"gp-weight":    func() { cfg.GPWeight = *gpWeight },
		"lr":           func() { cfg.LearningRate = *lr },
		"noise-dim":    func() { cfg.NoiseDim = *noiseDim },
		"aux-weight":   func() { cfg.AuxWeight = *auxWeight },
		"replicas":     func() { cfg.Replicas = *replicas },
		"synthetic":    func() { cfg.Synthetic = *synthetic },
		"knn":          func() { cfg.KNN = *knn },
		"jitter":       func() { cfg.Jitter = *jitter },
		"folds":        func() { cfg.Folds = *folds },
		"search":       func() { cfg.Search = *doSearch },
		"seed":         func() { cfg.Seed = *seed },
	}
	flag.Visit(func(f *flag.Flag) {
		if set, ok := apply[f.Name]; ok {
			set()
		}
	})

	if err := run(cfg); err != nil {
		log.Fatalf("[augment] %v", err)
	}
}

func run(cfg config) error {
	real, blind, err := datasets.LoadSplit(cfg.Train, cfg.Blind)
	if err != nil {
		return err
	}
	log.Printf("[data] train %d rows, blind %d rows", real.Len(), blind.Len())
	if sum, err := datasets.Summarize(real); err == nil {
		log.Printf("[data] %d experiments, %d columns", len(sum.GroupRows), len(sum.Columns))
	}

	sc := scale.NewMinMaxScaler()
	if err := sc.Fit(real.Joined()); err != nil {
		return fmt.Errorf("fit scaler: %w", err)
	}

	table, err := assemble(cfg, real, sc)
	if err != nil {
		return err
	}
	log.Printf("[augment] strategy %s: %d rows (%d real + %d synthetic)",
		cfg.Strategy, table.Len(), real.Len(), table.Len()-real.Len())

	baseline, err := evaluate(cfg, real, blind, "baseline")
	if err != nil {
		return err
	}
	report := baseline
	if cfg.Strategy != "baseline" {
		report, err = evaluate(cfg, table, blind, cfg.Strategy)
		if err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Printf("%-12s %-12s %10s %10s %10s\n", "dataset", "model", "SMAPE%", "NRMSE", "R2")
	fmt.Printf("%-12s %-12s %10.2f %10.4f %10.4f\n", "baseline", baseline.model, baseline.smape, baseline.nrmse, baseline.r2)
	if cfg.Strategy != "baseline" {
		fmt.Printf("%-12s %-12s %10.2f %10.4f %10.4f\n", cfg.Strategy, report.model, report.smape, report.nrmse, report.r2)
	}
	return nil
}

// assemble trains the configured generator and builds the augmented table.
// The baseline strategy returns the real table untouched.
func assemble(cfg config, real *datasets.Table, sc *scale.MinMaxScaler) (*datasets.Table, error) {
	switch cfg.Strategy {
	case "baseline":
		return real, nil

	case "empirical":
		emp, err := augment.NewEmpirical(real, sc, cfg.KNN, cfg.Jitter, cfg.Seed)
		if err != nil {
			return nil, err
		}
		return augment.Uniform(emp, real, sc)

	case "uniform", "aux", "selective", "twostage":
		trainer, err := trainGAN(cfg, real, sc)
		if err != nil {
			return nil, err
		}
		switch cfg.Strategy {
		case "selective":
			return augment.Selective(trainer, real, sc, datasets.ImpurityCols, cfg.Replicas)
		case "twostage":
			forest := regress.NewForest()
			forest.MaxDepth = 8
			forest.Seed = cfg.Seed
			return augment.TwoStage(trainer, real, sc, forest, datasets.ImpurityCols, cfg.Synthetic)
		default:
			return augment.Uniform(trainer, real, sc)
		}

	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}
}

// trainGAN fits the WGAN-GP on the normalized real table. The aux strategy
// first trains a frozen dense regressor the generator objective can
// backpropagate through.
func trainGAN(cfg config, real *datasets.Table, sc *scale.MinMaxScaler) (*gan.Trainer, error) {
	rows, err := sc.Transform(real.Joined())
	if err != nil {
		return nil, fmt.Errorf("normalize training rows: %w", err)
	}
	featDim := len(real.FeatureCols)
	dataDim := featDim + len(real.TargetCols)

	ganCfg := gan.Config{
		DataDim:      dataDim,
		FeatureDim:   featDim,
		NoiseDim:     cfg.NoiseDim,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		CriticIters:  cfg.CriticIters,
		GPWeight:     cfg.GPWeight,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
	}
	if cfg.Strategy == "aux" {
		ganCfg.AuxWeight = cfg.AuxWeight
	}

	trainer, err := gan.NewTrainer(ganCfg)
	if err != nil {
		return nil, err
	}

	if cfg.Strategy == "aux" {
		aux, err := gan.NewNetwork([]int{featDim, 32, 32, dataDim - featDim}, gan.ActLeakyReLU, gan.ActLinear, cfg.Seed+2)
		if err != nil {
			return nil, err
		}
		X := make([][]float64, len(rows))
		Y := make([][]float64, len(rows))
		for i, row := range rows {
			X[i] = row[:featDim]
			Y[i] = row[featDim:]
		}
		log.Printf("[gan] training frozen aux regressor")
		if err := gan.TrainMSE(aux, X, Y, 300, 16, 1e-3, cfg.Seed+3); err != nil {
			return nil, fmt.Errorf("train aux regressor: %w", err)
		}
		trainer.Aux = aux
	}

	log.Printf("[gan] training %d epochs, batch %d, %d critic iters", cfg.Epochs, cfg.BatchSize, cfg.CriticIters)
	if err := trainer.Train(&gan.SliceDataset{Rows: rows}); err != nil {
		return nil, err
	}
	return trainer, nil
}

type result struct {
	model string
	smape float64
	nrmse float64
	r2    float64
}

// evaluate fits a model on the given table and scores it on the blind set.
// Models train in normalized space; predictions are mapped back to original
// units before scoring.
func evaluate(cfg config, table, blind *datasets.Table, label string) (result, error) {
	xScaler := scale.NewMinMaxScaler()
	if err := xScaler.Fit(table.Features); err != nil {
		return result{}, fmt.Errorf("%s: fit feature scaler: %w", label, err)
	}
	yScaler := scale.NewMinMaxScaler()
	if err := yScaler.Fit(table.Targets); err != nil {
		return result{}, fmt.Errorf("%s: fit target scaler: %w", label, err)
	}
	X, err := xScaler.Transform(table.Features)
	if err != nil {
		return result{}, err
	}
	Y, err := yScaler.Transform(table.Targets)
	if err != nil {
		return result{}, err
	}

	chosen := search.Candidate{
		Name: "forest",
		New: func() regress.Regressor {
			f := regress.NewForest()
			f.MaxDepth = 8
			f.MinSamplesLeaf = 2
			f.Seed = cfg.Seed
			return f
		},
	}
	if cfg.Search {
		best, scores, err := search.Select(search.DefaultCandidates(cfg.Seed), X, Y, table.GroupIDs, cfg.Folds, cfg.Seed)
		if err != nil {
			return result{}, fmt.Errorf("%s: model search: %w", label, err)
		}
		chosen = best
		log.Printf("[eval] %s: best model %s (cv smape %.2f%%)", label, best.Name, scores[0].SMAPE)
	}

	model := chosen.New()
	if err := model.Fit(X, Y); err != nil {
		return result{}, fmt.Errorf("%s: fit %s: %w", label, chosen.Name, err)
	}

	bx, err := xScaler.Transform(blind.Features)
	if err != nil {
		return result{}, err
	}
	predN, err := model.Predict(bx)
	if err != nil {
		return result{}, fmt.Errorf("%s: predict blind: %w", label, err)
	}
	pred, err := yScaler.InverseTransform(predN)
	if err != nil {
		return result{}, err
	}

	smape, err := metrics.SMAPE(blind.Targets, pred)
	if err != nil {
		return result{}, err
	}
	nrmse, err := metrics.NRMSE(blind.Targets, pred)
	if err != nil {
		return result{}, err
	}
	r2, err := metrics.R2(blind.Targets, pred)
	if err != nil {
		return result{}, err
	}
	return result{model: chosen.Name, smape: smape, nrmse: nrmse, r2: r2}, nil
}
