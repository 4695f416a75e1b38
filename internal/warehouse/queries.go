package warehouse

// Default extraction queries against the maintainer-comments schema.
// Overridable via warehouse.workOrderQuery / warehouse.commentQuery config.

// DefaultWorkOrderQuery lists the distinct work orders in scope.
const DefaultWorkOrderQuery = `
SELECT DISTINCT activity_id, sap_work_number
FROM sw_temp_maintainer_comments
WHERE activity_mwc = 'SN16'`

// DefaultCommentQuery joins comment rows with their element details and
// keeps only comments belonging to in-scope work orders.
const DefaultCommentQuery = `
WITH in_scope_orders AS (
    SELECT DISTINCT activity_id, sap_work_number
    FROM sw_temp_maintainer_comments
    WHERE activity_mwc = 'SN16'
),
comments_by_order AS (
    SELECT
        a.id, a.activity_id, a.sap_work_number, b.role_name, b.work_sequence_name,
        b.element_step, a.element_instance_name, a.suffix, a.comment_title,
        a.comment_description, a.location_urls, a.comment_used_for, a.created_date
    FROM sw_temp_maintainer_comments AS a
    LEFT JOIN sw_element_instance AS b ON a.element_instance_id = b.id
    WHERE a.comment_used_for IN ('Notification', 'Report')
)
SELECT
    c.id, t.activity_id, t.sap_work_number, c.role_name, c.work_sequence_name,
    c.element_step, c.element_instance_name, c.suffix, c.comment_title,
    c.comment_description, c.location_urls, c.comment_used_for, c.created_date
FROM comments_by_order AS c
INNER JOIN in_scope_orders AS t
    ON c.activity_id = t.activity_id AND c.sap_work_number = t.sap_work_number
ORDER BY t.sap_work_number, c.id`
