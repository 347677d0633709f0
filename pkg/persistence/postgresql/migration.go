package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_status ON automations(status);

			CREATE TABLE contacts (
				id VARCHAR(255) PRIMARY KEY,
				document JSONB NOT NULL
			);

			CREATE TABLE enrollments (
				id VARCHAR(255) PRIMARY KEY,
				contact_id VARCHAR(255) NOT NULL,
				automation_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'waiting', 'completed')),
				document JSONB NOT NULL
			);

			CREATE INDEX idx_enrollments_automation ON enrollments(automation_id);
			CREATE INDEX idx_enrollments_contact_automation ON enrollments(contact_id, automation_id);
			CREATE INDEX idx_enrollments_status ON enrollments(status);

			CREATE TABLE send_log (
				enrollment_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				template_id VARCHAR(255) NOT NULL,
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (enrollment_id, node_id)
			);
		`,
	}
}
