package model

// Resources resource amounts per dimension
type Resources struct {
	CPUUnits    float64 `json:"cpu_units" yaml:"cpu_units"`
	MemoryBytes int64   `json:"memory_bytes" yaml:"memory_bytes"`
	DiskBytes   int64   `json:"disk_bytes" yaml:"disk_bytes"`
	NetworkKbps int64   `json:"network_kbps" yaml:"network_kbps"`
}

// IsZero reports whether all dimensions are zero
func (r Resources) IsZero() bool {
	return r.CPUUnits == 0 && r.MemoryBytes == 0 && r.DiskBytes == 0 && r.NetworkKbps == 0
}

// IsNonNegative reports whether no dimension is negative
func (r Resources) IsNonNegative() bool {
	return r.CPUUnits >= 0 && r.MemoryBytes >= 0 && r.DiskBytes >= 0 && r.NetworkKbps >= 0
}

// Add returns the per-dimension sum of r and other
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPUUnits:    r.CPUUnits + other.CPUUnits,
		MemoryBytes: r.MemoryBytes + other.MemoryBytes,
		DiskBytes:   r.DiskBytes + other.DiskBytes,
		NetworkKbps: r.NetworkKbps + other.NetworkKbps,
	}
}

// Subtract returns the per-dimension difference of r and other
func (r Resources) Subtract(other Resources) Resources {
	return Resources{
		CPUUnits:    r.CPUUnits - other.CPUUnits,
		MemoryBytes: r.MemoryBytes - other.MemoryBytes,
		DiskBytes:   r.DiskBytes - other.DiskBytes,
		NetworkKbps: r.NetworkKbps - other.NetworkKbps,
	}
}

// Fits reports whether r fits within limit on every dimension
func (r Resources) Fits(limit Resources) bool {
	return r.CPUUnits <= limit.CPUUnits &&
		r.MemoryBytes <= limit.MemoryBytes &&
		r.DiskBytes <= limit.DiskBytes &&
		r.NetworkKbps <= limit.NetworkKbps
}

// Utilization returns the highest per-dimension usage ratio of r against limit.
// Dimensions with a zero limit are skipped.
func (r Resources) Utilization(limit Resources) float64 {
	max := 0.0
	if limit.CPUUnits > 0 {
		if u := r.CPUUnits / limit.CPUUnits; u > max {
			max = u
		}
	}
	if limit.MemoryBytes > 0 {
		if u := float64(r.MemoryBytes) / float64(limit.MemoryBytes); u > max {
			max = u
		}
	}
	if limit.DiskBytes > 0 {
		if u := float64(r.DiskBytes) / float64(limit.DiskBytes); u > max {
			max = u
		}
	}
	if limit.NetworkKbps > 0 {
		if u := float64(r.NetworkKbps) / float64(limit.NetworkKbps); u > max {
			max = u
		}
	}
	return max
}
