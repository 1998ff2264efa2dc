package email

const (
	subjectOfferDispatched    = "Uw offerte staat klaar"
	subjectOfferReminder      = "Herinnering: offerte wacht nog op reactie van de klant"
	subjectOfferEscalationFmt = "Offerte al %d dagen open"
	subjectWeatherAlertFmt    = "Weerswaarschuwing voor regio %s"
)
