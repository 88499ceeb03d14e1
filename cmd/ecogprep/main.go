// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command ecogprep builds the train and test streams of a dataset and runs
// one pass over the train split, reporting how many samples each recording
// contributes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OpenPSG/ecog"
	"github.com/OpenPSG/ecog/manifest"
	"github.com/fatih/color"
	"k8s.io/klog/v2"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func main() {
	klog.InitFlags(nil)

	configPath := flag.String("config", "ecog.yaml", "Pipeline configuration (YAML).")
	datasetPath := flag.String("dataset", "dataset_full", "Dataset root holding dataset.csv and derivatives/preprocessed.")
	dataSize := flag.Float64("data-size", 1, "Fraction of the manifest to use.")
	trainProportion := flag.Float64("train-proportion", 0.9, "Fraction of the selected recordings assigned to the train split.")
	seed := flag.Int64("seed", 1, "Seed for shuffling the manifest when shuffle is enabled.")
	flag.Parse()
	defer klog.Flush()

	if err := run(*configPath, *datasetPath, *dataSize, *trainProportion, *seed); err != nil {
		_, _ = red.Fprintf(os.Stderr, "error: %v\n", err)
		klog.Flush()
		os.Exit(1)
	}
}

func run(configPath, datasetPath string, dataSize, trainProportion float64, seed int64) error {
	cfg, err := ecog.LoadConfig(configPath)
	if err != nil {
		return err
	}

	m, err := manifest.Load(filepath.Join(datasetPath, "dataset.csv"))
	if err != nil {
		return err
	}
	train, test := m.Select(dataSize).Split(trainProportion, cfg.Shuffle, seed)

	root := filepath.Join(datasetPath, "derivatives", "preprocessed")

	trainChain, err := openChain(train.Paths(root), cfg)
	if err != nil {
		return fmt.Errorf("train split: %w", err)
	}
	defer trainChain.Close()

	testChain, err := openChain(test.Paths(root), cfg)
	if err != nil {
		return fmt.Errorf("test split: %w", err)
	}
	defer testChain.Close()

	for _, d := range trainChain.Members() {
		_, _ = yellow.Printf("%-80s %6d samples\n", d.Name(), d.Len())
	}
	_, _ = green.Printf("train: %d recordings, %d samples; test: %d recordings, %d samples\n",
		len(trainChain.Members()), trainChain.Len(), len(testChain.Members()), testChain.Len())

	if cfg.BatchSize == 0 {
		return nil
	}

	batcher, err := ecog.NewBatcher("train", trainChain, cfg.BatchSize)
	if err != nil {
		return err
	}

	batches := 0
	for {
		_, inputs, _, err := batcher.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		batches++
		klog.V(1).Infof("batch %d: %v", batches, inputs[0].Shape())
	}
	_, _ = green.Printf("one pass over train: %d batches of up to %d samples\n", batches, cfg.BatchSize)

	return nil
}

func openChain(paths []string, cfg ecog.Config) (*ecog.Chain, error) {
	var members []*ecog.Dataset
	for _, path := range paths {
		d, err := ecog.Open(path, cfg)
		if err != nil {
			_ = ecog.NewChain(members...).Close()
			return nil, err
		}
		members = append(members, d)
	}
	return ecog.NewChain(members...), nil
}
