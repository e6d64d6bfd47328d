package stage

// Health reports whether a stage's capability is usable. Detail carries
// the reason when it is not.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
