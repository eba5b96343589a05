package tick

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fieldops/missiond/errors"
)

// memorySnapshot is logged periodically by the serve loop so long-running
// drivers surface memory pressure before the OS does.
type memorySnapshot struct {
	UsedGB  float64
	TotalGB float64
	Percent float64
}

func readMemory() (memorySnapshot, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return memorySnapshot{}, errors.Wrap(err, "failed to get memory stats")
	}
	const gb = 1024 * 1024 * 1024
	return memorySnapshot{
		UsedGB:  float64(v.Total-v.Available) / gb,
		TotalGB: float64(v.Total) / gb,
		Percent: v.UsedPercent,
	}, nil
}
