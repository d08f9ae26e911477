package db

// SchemaSQL contains the database schema initialization SQL.
// Every field is written explicitly by the queries, so nested rows carry no defaults.
const SchemaSQL = `
    -- ==========================================================================
    -- HCP TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS hcp SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON hcp TYPE string ASSERT string::len(string::trim($value)) > 0;
    DEFINE FIELD IF NOT EXISTS title ON hcp TYPE string;
    DEFINE FIELD IF NOT EXISTS speciality ON hcp TYPE string;
    DEFINE FIELD IF NOT EXISTS organisation ON hcp TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON hcp TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON hcp TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS hcp_created ON hcp FIELDS created_at;

    -- ==========================================================================
    -- INTERACTION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS interaction SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS hcp_id ON interaction TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS rep_id ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS mode ON interaction TYPE string ASSERT $value IN ["structured", "conversational"];
    DEFINE FIELD IF NOT EXISTS datetime ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS sentiment ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS topics ON interaction TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS outcome ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS source_raw ON interaction TYPE string;

    DEFINE FIELD IF NOT EXISTS materials ON interaction TYPE array<object>;
    DEFINE FIELD IF NOT EXISTS materials[*].id ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS materials[*].material_type ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS materials[*].quantity ON interaction TYPE int;
    DEFINE FIELD IF NOT EXISTS materials[*].notes ON interaction TYPE string;

    DEFINE FIELD IF NOT EXISTS samples ON interaction TYPE array<object>;
    DEFINE FIELD IF NOT EXISTS samples[*].id ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS samples[*].product_code ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS samples[*].quantity ON interaction TYPE int;
    DEFINE FIELD IF NOT EXISTS samples[*].lot ON interaction TYPE string;

    DEFINE FIELD IF NOT EXISTS follow_ups ON interaction TYPE array<object>;
    DEFINE FIELD IF NOT EXISTS follow_ups[*].id ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS follow_ups[*].action_item ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS follow_ups[*].due_date ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS follow_ups[*].owner ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS follow_ups[*].status ON interaction TYPE string;

    DEFINE FIELD IF NOT EXISTS created_at ON interaction TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON interaction TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS interaction_hcp ON interaction FIELDS hcp_id;
    DEFINE INDEX IF NOT EXISTS interaction_rep ON interaction FIELDS rep_id;
`
