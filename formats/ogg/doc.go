// SPDX-License-Identifier: EPL-2.0

// Package ogg demuxes Ogg files. Pages are checksum-verified and lacing is
// reassembled into packets of the first logical stream; the first packet
// decides whether the stream goes to the opus or the vorbis decoder.
package ogg
