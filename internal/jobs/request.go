package jobs

// ScheduleRequest is the flat, textual form of a job to schedule, shared by
// the admin API and the command line. Without a process instance id the
// job targets the process definition.
type ScheduleRequest struct {
	ID                    string `json:"id,omitempty"`
	ProcessID             string `json:"processId"`
	ProcessInstanceID     string `json:"processInstanceId,omitempty"`
	RootProcessID         string `json:"rootProcessId,omitempty"`
	RootProcessInstanceID string `json:"rootProcessInstanceId,omitempty"`
	NodeInstanceID        string `json:"nodeInstanceId,omitempty"`
	Priority              int    `json:"priority,omitempty"`

	PolicyOptions
}

// Description builds the JobDescription the request stands for. Errors
// wrap ErrInvalidJobRequest.
func (req ScheduleRequest) Description() (JobDescription, error) {
	policy, err := req.Policy()
	if err != nil {
		return JobDescription{}, err
	}
	if req.ProcessInstanceID == "" {
		desc := NewProcessJob(policy, req.Priority, req.ProcessID)
		if req.ID != "" {
			desc.ID = req.ID
		}
		return desc, nil
	}

	desc := NewProcessInstanceJob(req.ID, policy, req.Priority, req.ProcessInstanceID, req.ProcessID)
	desc.Target = ProcessInstanceReference{
		ProcessInstanceID:     req.ProcessInstanceID,
		ProcessID:             req.ProcessID,
		RootProcessInstanceID: req.RootProcessInstanceID,
		RootProcessID:         req.RootProcessID,
		NodeInstanceID:        req.NodeInstanceID,
	}
	return desc, nil
}
