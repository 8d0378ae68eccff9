package main

import (
	"github.com/YuminosukeSato/bgnn/bgnn"
	"github.com/YuminosukeSato/bgnn/preprocessing"
)

// preprocess builds the network input from the raw features. The trees keep the
// raw features, including categorical codes and missing values.
func preprocess(cfg PreprocessingConfig, categorical []int, data bgnn.Dataset) (bgnn.Dataset, error) {
	raw := data.X
	X := raw
	m := data.Masks

	if len(categorical) > 0 {
		data.OriginalX = raw
		data.CategoricalFeatures = categorical
		if cfg.EncodeCategorical {
			encoded, err := preprocessing.EncodeCategorical(X, data.Y, categorical, m.Train, m.Val, m.Test)
			if err != nil {
				return data, err
			}
			X = encoded
		}
	}
	if cfg.ReplaceNA {
		filled, err := preprocessing.ReplaceNA(X, m.Train)
		if err != nil {
			return data, err
		}
		X = filled
	}

	var scaler preprocessing.Scaler
	switch cfg.Normalize {
	case "minmax":
		scaler = preprocessing.NewMinMaxScalerDefault()
	case "standard":
		scaler = preprocessing.NewStandardScaler()
	}
	if scaler != nil {
		normalized, err := preprocessing.NormalizeFeatures(X, scaler, m.Train, m.Val, m.Test)
		if err != nil {
			return data, err
		}
		X = normalized
	}

	data.X = X
	return data, nil
}
