package prediction

import "time"

func (svc *Service) SetNow(f func() time.Time) { svc.nowFunc = f }
