package status

import "strconv"

// SerialSink renders a Sample as a single "token:value,token:value" line
// and hands it to Write, mirroring core.DebugWriter's plain-string-sink
// shape rather than framing it as a protocol.Transport command — a status
// line is diagnostic text, not a host-directed command.
type SerialSink struct {
	Write func(string)
}

func (s *SerialSink) Publish(sample Sample) {
	if s.Write == nil {
		return
	}
	line := formatSample(sample)
	s.Write(line)
}

func formatSample(sample Sample) string {
	out := make([]byte, 0, 16*len(sample.Tokens))
	for i, tok := range sample.Tokens {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, tok...)
		out = append(out, ':')
		out = strconv.AppendFloat(out, sample.Values[i], 'f', 3, 64)
	}
	return string(out)
}
