package gameclient

// ReportManager implements pipeline.ReportRunner by re-fetching the farm
// assistant target list, refreshing the haul/wall intel the farm runner's
// next cycle reads. No report-console parser exists yet to drive
// per-target blacklist decisions (farm.BlacklistCriteria is wired by the
// wiring layer once that extraction exists); this keeps the loop's
// intel-refresh shape in place per spec.md's "report manager feeds
// farming" ordering.
type ReportManager struct {
	client    *Client
	villageID int
}

// NewReportManager constructs a ReportManager scoped to one village.
func NewReportManager(client *Client, villageID int) *ReportManager {
	return &ReportManager{client: client, villageID: villageID}
}

func (r *ReportManager) Run(villageID int) error {
	_, err := r.client.navigate("am_farm", villageID, nil)
	return err
}
