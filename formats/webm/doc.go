// SPDX-License-Identifier: EPL-2.0

// Package webm demuxes WebM (Matroska) audio recordings.
//
// Demux reads the EBML element tree in a single linear pass. Masters with
// unknown size, as written by live recorders, are descended like sized ones.
// SimpleBlock and Block frames are split according to their lacing (none,
// Xiph, fixed or EBML) and grouped by track. Input that ends inside an
// element is accepted and reported through File.Truncated.
//
// Decoder feeds the frames of the first Opus audio track to the opus
// package.
package webm
