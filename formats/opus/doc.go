// SPDX-License-Identifier: EPL-2.0

// Package opus wraps layeh.com/gopus for the containers that carry Opus:
// PacketSource decodes demuxed packets at 48 kHz, Encoder produces the
// 20 ms packets written by the capture recorder, ParseHead reads the
// OpusHead identification header.
package opus
