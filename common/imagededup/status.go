package imagededup

import "github.com/efarmer/subsidy/common/models"

// NextStatus derives a farmer's image status after an upload.
//
// reasons are all reasons raised by this upload (standard and corner checks
// together). A suspicious farmer stays suspicious: with new reasons the
// reason list is replaced, otherwise the previous reasons are kept.
func NextStatus(current models.ImageStatus, hasAllImages bool, reasons []string) models.ImageStatus {
	if len(reasons) > 0 {
		return models.ImageStatus{
			State:   models.ImageSuspicious,
			Reasons: append([]string(nil), reasons...),
		}
	}

	if current.State == models.ImageSuspicious {
		return current.Clone()
	}

	if hasAllImages {
		return models.ImageStatus{State: models.ImageVerified}
	}

	return models.PendingStatus()
}
