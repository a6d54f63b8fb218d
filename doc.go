/*
Package streamdec republishes a compressed response-body stream as an
equivalent decoded stream, preserving the pull-based backpressure and
cancellation contract of the original.

Usage:

	body := streamdec.StreamOf(
		streamdec.NewHeaders("200",
			streamdec.Field{Name: "Content-Encoding", Value: "gzip"}),
		streamdec.PayloadOf(gzippedBytes),
	)
	decoded := streamdec.NewDecodedStream(body)
	decoded.Subscribe(consumer)

The consumer observes the header set with the encoding indicator removed,
the decompressed data chunks, and the terminal signal. Subscribing with
streamdec.WithPooledPayloads() hands out reference-counted buffers that the
consumer must close; by default chunks are plain byte slices.
*/
package streamdec
