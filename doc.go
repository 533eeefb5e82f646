// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package sampleindex provides the run-length-compressed, append-optimized
// encoders that back a chunked dataset's sample index: given a global
// sample index, the encoders in package encoding answer which chunk(s)
// hold it, where its bytes start, and what shape it has, without storing
// one entry per sample.
package sampleindex
