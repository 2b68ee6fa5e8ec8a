package cwa

// Producer helpers wrap raw file, command, and task text into stored
// entries. They are conveniences over NextID/Add; callers that need full
// control build entries with NewEntry directly.

// AddFile stores a searchable FILE entry for the given path. A nil ttl means
// the entry never expires.
func (s *CentralContextStore) AddFile(path, content, summary string, ttl *int) (string, error) {
	entry, err := NewEntry(EntryParams{
		ID:         s.NextID(),
		Type:       EntryTypeFile,
		Source:     path,
		Content:    &content,
		Summary:    &summary,
		Searchable: true,
		TTL:        cloneIntPtr(ttl),
	})
	if err != nil {
		return "", err
	}
	return s.Add(entry)
}

// AddCommandResult stores the result of a command. With keepCommand false,
// exactly one entry is stored: the searchable COMMAND_RESULT. With
// keepCommand true the COMMAND itself is stored too (not searchable), and
// the result links back to it through ParentID and DerivedFrom.
// Returns the result entry's id.
func (s *CentralContextStore) AddCommandResult(command, result, summary string, keepCommand bool) (string, error) {
	parentID := ""
	var derivedFrom []string

	if keepCommand {
		cmdEntry, err := NewEntry(EntryParams{
			ID:         s.NextID(),
			Type:       EntryTypeCommand,
			Source:     command,
			Content:    &command,
			Searchable: false,
		})
		if err != nil {
			return "", err
		}
		if _, err := s.Add(cmdEntry); err != nil {
			return "", err
		}
		parentID = cmdEntry.ID
		derivedFrom = []string{cmdEntry.ID}
	}

	resultEntry, err := NewEntry(EntryParams{
		ID:          s.NextID(),
		Type:        EntryTypeCommandResult,
		Source:      command,
		Content:     &result,
		Summary:     &summary,
		ParentID:    parentID,
		DerivedFrom: derivedFrom,
		Searchable:  true,
	})
	if err != nil {
		if parentID != "" {
			s.Remove(parentID)
		}
		return "", err
	}
	id, err := s.Add(resultEntry)
	if err != nil && parentID != "" {
		s.Remove(parentID)
	}
	return id, err
}

// AddTaskResult stores a searchable TASK_RESULT entry sourced from the task
// id. The task description stands in when no summary is given.
func (s *CentralContextStore) AddTaskResult(taskID, description, result, summary string) (string, error) {
	if summary == "" {
		summary = description
	}
	entry, err := NewEntry(EntryParams{
		ID:         s.NextID(),
		Type:       EntryTypeTaskResult,
		Source:     taskID,
		Content:    &result,
		Summary:    &summary,
		Searchable: true,
	})
	if err != nil {
		return "", err
	}
	return s.Add(entry)
}

// AddSearchResultSummary stores a SEARCH_RESULT entry derived from the
// entries a search surfaced.
func (s *CentralContextStore) AddSearchResultSummary(query, text string, derivedFrom []string) (string, error) {
	entry, err := NewEntry(EntryParams{
		ID:          s.NextID(),
		Type:        EntryTypeSearchResult,
		Source:      query,
		Content:     &text,
		Summary:     &text,
		DerivedFrom: derivedFrom,
		Searchable:  true,
	})
	if err != nil {
		return "", err
	}
	return s.Add(entry)
}
