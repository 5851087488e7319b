package dataset

import "fracturemask/pkg/faults"

func checkChannel(channel int) error {
	if channel < 0 || channel > 2 {
		return faults.InvalidArgument("channel %d outside 0..2", channel)
	}
	return nil
}
